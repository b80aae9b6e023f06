package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is one customer order. Type records how it entered the system:
// Tailoring (cut-based production), Stock (fulfilled from on-hand
// outfit stock), Legacy (manual back entry), Imported (spreadsheet row,
// excluded from all normal flows).
type Order struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id"`
	OrderNumber string    `gorm:"index;size:100;not null" json:"order_number" binding:"required"`
	Type        OrderType `gorm:"type:enum('Tailoring','Stock','Legacy','Imported');not null" json:"type"`

	CustomerId   *int      `gorm:"index" json:"customer_id"`
	Customer     *Customer `gorm:"foreignKey:CustomerId" json:"customer"`
	CustomerName string    `gorm:"size:100;not null" json:"customer_name"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Address      string    `gorm:"type:text" json:"address"`
	City         string    `gorm:"size:100" json:"city"`
	State        string    `gorm:"size:100" json:"state"`

	// outfit link: id is the referential truth, name is a display
	// snapshot taken at create/edit time
	OutfitId   *int       `gorm:"index" json:"outfit_id"`
	OutfitName string     `gorm:"size:100" json:"outfit_name"`
	Size       *SizeLabel `gorm:"type:enum('S','M','L','XL','XXL')" json:"size"`
	Quantity   int        `gorm:"default:1" json:"quantity"`

	// fabric cut at creation (tailoring orders)
	FabricId  *int            `gorm:"index" json:"fabric_id"`
	CutAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cut_amount"`

	Status        OrderStatus   `gorm:"type:enum('Sent to Tailor','Received from Tailor','Ready to Ship','Order Shipped (Completed)','Cancelled','Imported');not null;index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"type:enum('Prepaid','COD');default:Prepaid" json:"payment_method"`

	FinalSellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_selling_price"`
	OrderTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_total"`
	StitchingCost     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stitching_cost"`
	FabricCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fabric_cost"`
	ShippingCost      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_cost"`
	CodCharge         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cod_charge"`
	OtherExpenses     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_expenses"`
	Discount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`

	// raw spreadsheet row for imported orders, free-form key/value JSON
	ImportedData []byte `gorm:"type:json" json:"imported_data"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTailoringOrder struct {
	OrderNumber   string          `json:"order_number" binding:"required"`
	CustomerName  string          `json:"customer_name" binding:"required"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	OutfitName    string          `json:"outfit_name"`
	Size          *SizeLabel      `json:"size"`
	FabricId      *int            `json:"fabric_id"`
	CutAmount     decimal.Decimal `json:"cut_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	StitchingCost decimal.Decimal `json:"stitching_cost"`
	FabricCost    decimal.Decimal `json:"fabric_cost"`
	Discount      decimal.Decimal `json:"discount"`
}

type NewStockOrder struct {
	OrderNumber   string          `json:"order_number" binding:"required"`
	CustomerName  string          `json:"customer_name" binding:"required"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	OutfitName    string          `json:"outfit_name" binding:"required"`
	Size          SizeLabel       `json:"size" binding:"required"`
	Quantity      int             `json:"quantity"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	Discount      decimal.Decimal `json:"discount"`
}

type NewLegacyOrder struct {
	OrderNumber       string          `json:"order_number" binding:"required"`
	CustomerName      string          `json:"customer_name" binding:"required"`
	Phone             string          `json:"phone"`
	OutfitName        string          `json:"outfit_name"`
	Size              *SizeLabel      `json:"size"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	FinalSellingPrice decimal.Decimal `json:"final_selling_price"`
	StitchingCost     decimal.Decimal `json:"stitching_cost"`
	FabricCost        decimal.Decimal `json:"fabric_cost"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
}

type ShipOrderInput struct {
	FinalSellingPrice decimal.Decimal `json:"final_selling_price" binding:"required"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	CodCharge         decimal.Decimal `json:"cod_charge"`
	OtherExpenses     decimal.Decimal `json:"other_expenses"`
}

func defaultPaymentMethod(m PaymentMethod) PaymentMethod {
	if m == "" {
		return PaymentMethodPrepaid
	}
	return m
}

// resolveOutfit resolves the optional outfit name to an id, hard
// validation: a non-empty name that does not match an outfit is an
// error.
func resolveOutfit(ctx context.Context, businessId string, outfitName string) (*InventoryItem, error) {
	if outfitName == "" {
		return nil, nil
	}
	outfit, err := GetOutfitByName(ctx, businessId, outfitName)
	if err != nil {
		return nil, errors.New("outfit not found: " + outfitName)
	}
	return outfit, nil
}

// CreateTailoringOrder creates a cut-based order. When a fabric and cut
// amount are supplied, the fabric is cut in the same transaction. The
// order enters Sent to Tailor.
func CreateTailoringOrder(ctx context.Context, input *NewTailoringOrder) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	outfit, err := resolveOutfit(ctx, businessId, input.OutfitName)
	if err != nil {
		return nil, err
	}
	if input.Size != nil && !input.Size.Valid() {
		return nil, errors.New("invalid size")
	}

	cutRequested := input.FabricId != nil && *input.FabricId > 0 && input.CutAmount.IsPositive()
	if input.FabricId != nil && *input.FabricId > 0 && !cutRequested {
		return nil, errors.New("cut amount must be positive")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "order.go", "CreateTailoringOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)

	customer, err := FindOrCreateCustomerByName(tx, ctx, businessId, &NewCustomer{
		Name:    input.CustomerName,
		Phone:   input.Phone,
		Address: input.Address,
		City:    input.City,
		State:   input.State,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	order := Order{
		BusinessId:    businessId,
		OrderNumber:   input.OrderNumber,
		Type:          OrderTypeTailoring,
		CustomerId:    &customer.ID,
		CustomerName:  customer.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		City:          input.City,
		State:         input.State,
		Size:          input.Size,
		Quantity:      1,
		FabricId:      input.FabricId,
		CutAmount:     input.CutAmount,
		Status:        OrderStatusSentToTailor,
		PaymentMethod: defaultPaymentMethod(input.PaymentMethod),
		StitchingCost: input.StitchingCost,
		FabricCost:    input.FabricCost,
		Discount:      input.Discount,
	}
	if outfit != nil {
		order.OutfitId = &outfit.ID
		order.OutfitName = outfit.Name
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if cutRequested {
		_, err := ApplyFabricDelta(tx, ctx, businessId, *input.FabricId, StockEntryCut, input.CutAmount, StockMutationRef{
			OrderNumber:   order.OrderNumber,
			StatusLabel:   string(order.Status),
			ReferenceType: StockReferenceTypeOrder,
			ReferenceId:   order.ID,
		})
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		// derive fabric cost from the cut when not supplied
		if order.FabricCost.IsZero() {
			var fabric InventoryItem
			if err := tx.Where("business_id = ? AND id = ?", businessId, *input.FabricId).First(&fabric).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			order.FabricCost = input.CutAmount.Mul(fabric.CostPerMeter)
			if err := tx.Model(&order).Updates(map[string]interface{}{"FabricCost": order.FabricCost}).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := SaveHistoryCreate(tx, ctx, "Order", order.ID, &order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return &order, nil
}

// CreateStockOrder fulfils from on-hand outfit stock: the size bucket is
// deducted (OUTFIT_SOLD) at creation and the order enters Ready to Ship
// directly.
func CreateStockOrder(ctx context.Context, input *NewStockOrder) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	outfit, err := resolveOutfit(ctx, businessId, input.OutfitName)
	if err != nil {
		return nil, err
	}
	if outfit == nil {
		return nil, errors.New("outfit is required")
	}
	if !input.Size.Valid() {
		return nil, errors.New("invalid size")
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, errors.New("quantity must be positive")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "order.go", "CreateStockOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)

	customer, err := FindOrCreateCustomerByName(tx, ctx, businessId, &NewCustomer{
		Name:    input.CustomerName,
		Phone:   input.Phone,
		Address: input.Address,
		City:    input.City,
		State:   input.State,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	size := input.Size
	order := Order{
		BusinessId:    businessId,
		OrderNumber:   input.OrderNumber,
		Type:          OrderTypeStock,
		CustomerId:    &customer.ID,
		CustomerName:  customer.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		City:          input.City,
		State:         input.State,
		OutfitId:      &outfit.ID,
		OutfitName:    outfit.Name,
		Size:          &size,
		Quantity:      quantity,
		Status:        OrderStatusReadyToShip,
		PaymentMethod: defaultPaymentMethod(input.PaymentMethod),
		OrderTotal:    input.OrderTotal,
		Discount:      input.Discount,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// the deduction happens now, not at shipping
	_, err = ApplySizeDelta(tx, ctx, businessId, outfit.ID, input.Size, StockEntryOutfitSold, quantity, StockMutationRef{
		OrderNumber:   order.OrderNumber,
		StatusLabel:   string(order.Status),
		ReferenceType: StockReferenceTypeOrder,
		ReferenceId:   order.ID,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := SaveHistoryCreate(tx, ctx, "Order", order.ID, &order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return &order, nil
}

// CreateLegacyOrder back-enters an order without touching stock. Useful
// for sales that happened before the ledger existed; shipping a legacy
// order records the sale on the outfit's manual sold counter instead of
// a size bucket.
func CreateLegacyOrder(ctx context.Context, input *NewLegacyOrder) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	outfit, err := resolveOutfit(ctx, businessId, input.OutfitName)
	if err != nil {
		return nil, err
	}
	if input.Size != nil && !input.Size.Valid() {
		return nil, errors.New("invalid size")
	}

	tx := beginTx(ctx)

	customer, err := FindOrCreateCustomerByName(tx, ctx, businessId, &NewCustomer{
		Name:  input.CustomerName,
		Phone: input.Phone,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	order := Order{
		BusinessId:        businessId,
		OrderNumber:       input.OrderNumber,
		Type:              OrderTypeLegacy,
		CustomerId:        &customer.ID,
		CustomerName:      customer.Name,
		Phone:             input.Phone,
		Size:              input.Size,
		Quantity:          1,
		Status:            OrderStatusReadyToShip,
		PaymentMethod:     defaultPaymentMethod(input.PaymentMethod),
		FinalSellingPrice: input.FinalSellingPrice,
		StitchingCost:     input.StitchingCost,
		FabricCost:        input.FabricCost,
		ShippingCost:      input.ShippingCost,
	}
	if outfit != nil {
		order.OutfitId = &outfit.ID
		order.OutfitName = outfit.Name
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryCreate(tx, ctx, "Order", order.ID, &order); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &order, tx.Commit().Error
}

func fetchOrderForTransition(tx *gorm.DB, businessId string, id int) (*Order, error) {
	var order Order
	if err := tx.Clauses(forUpdate()).
		Where("business_id = ? AND id = ?", businessId, id).
		First(&order).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &order, nil
}

// ReceiveOrder moves a Sent to Tailor order to Received from Tailor.
// When the tailor returned stock units (outfit production runs routed
// through an order), the received size breakdown is credited to the
// outfit. Totals are not checked against any estimate; the tailor's
// count wins.
func ReceiveOrder(ctx context.Context, id int, receivedBreakdown map[SizeLabel]int) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	for size, qty := range receivedBreakdown {
		if !size.Valid() {
			return nil, errors.New("invalid size in breakdown")
		}
		if qty < 0 {
			return nil, errors.New("received quantity cannot be negative")
		}
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "order.go", "ReceiveOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)
	order, err := fetchOrderForTransition(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	oldOrder := *order

	if !CanTransition(order.Status, OrderStatusReceivedFromTailor) {
		tx.Rollback()
		return nil, errors.New("order cannot be received from status " + string(order.Status))
	}

	if len(receivedBreakdown) > 0 {
		if order.OutfitId == nil {
			tx.Rollback()
			return nil, errors.New("order has no outfit to credit")
		}
		for _, size := range AllSizeLabels {
			qty := receivedBreakdown[size]
			if qty == 0 {
				continue
			}
			_, err := ApplySizeDelta(tx, ctx, businessId, *order.OutfitId, size, StockEntryOutfitAdd, qty, StockMutationRef{
				OrderNumber:   order.OrderNumber,
				StatusLabel:   string(OrderStatusReceivedFromTailor),
				ReferenceType: StockReferenceTypeOrder,
				ReferenceId:   order.ID,
			})
			if err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Model(&order).Updates(map[string]interface{}{
		"Status": OrderStatusReceivedFromTailor,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx, ctx, "Order", order.ID, &oldOrder, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return order, nil
}

// ShipOrder completes an order. Requires a positive selling price. No
// stock moves for tailoring/stock orders (fabric and size stock were
// already settled at creation); shipping a legacy order records the
// sale on the outfit's manual sold counter.
func ShipOrder(ctx context.Context, id int, input *ShipOrderInput) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if !input.FinalSellingPrice.IsPositive() {
		return nil, errors.New("selling price must be positive")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "order.go", "ShipOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)
	order, err := fetchOrderForTransition(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	oldOrder := *order

	if !CanTransition(order.Status, OrderStatusShipped) {
		tx.Rollback()
		return nil, errors.New("order cannot be shipped from status " + string(order.Status))
	}

	if order.Type == OrderTypeLegacy && order.OutfitId != nil {
		size := SizeM
		if order.Size != nil {
			size = *order.Size
		}
		_, err := ApplySizeDelta(tx, ctx, businessId, *order.OutfitId, size, StockEntryOutfitSoldManual, order.Quantity, StockMutationRef{
			OrderNumber:   order.OrderNumber,
			StatusLabel:   string(OrderStatusShipped),
			ReferenceType: StockReferenceTypeOrder,
			ReferenceId:   order.ID,
		})
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Model(&order).Updates(map[string]interface{}{
		"Status":            OrderStatusShipped,
		"FinalSellingPrice": input.FinalSellingPrice,
		"ShippingCost":      input.ShippingCost,
		"CodCharge":         input.CodCharge,
		"OtherExpenses":     input.OtherExpenses,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx, ctx, "Order", order.ID, &oldOrder, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return order, nil
}

// CancelOrder cancels any non-terminal order. A fabric cut made at
// creation is returned (CANCEL_RETURN); size-bucket deductions made by
// from-stock orders are NOT restocked, matching the long-standing
// behavior the operation teams rely on for damaged/committed goods.
func CancelOrder(ctx context.Context, id int) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "order.go", "CancelOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)
	order, err := fetchOrderForTransition(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	oldOrder := *order

	if !CanTransition(order.Status, OrderStatusCancelled) {
		tx.Rollback()
		return nil, errors.New("order cannot be cancelled from status " + string(order.Status))
	}

	if order.FabricId != nil && *order.FabricId > 0 && order.CutAmount.IsPositive() {
		_, err := ApplyFabricDelta(tx, ctx, businessId, *order.FabricId, StockEntryCancelReturn, order.CutAmount, StockMutationRef{
			OrderNumber:   order.OrderNumber,
			StatusLabel:   string(OrderStatusCancelled),
			ReferenceType: StockReferenceTypeOrder,
			ReferenceId:   order.ID,
		})
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Model(&order).Updates(map[string]interface{}{
		"Status": OrderStatusCancelled,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx, ctx, "Order", order.ID, &oldOrder, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return order, nil
}

// DeleteOrder permanently removes an order after re-verifying the acting
// operator's password. Prior stock effects are NOT reversed.
func DeleteOrder(ctx context.Context, id int, password string) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := VerifyActingUserPassword(ctx, password); err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[Order](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	if err := tx.Delete(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryDelete(tx, ctx, "Order", order.ID, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	return order, tx.Commit().Error
}

func GetOrder(ctx context.Context, id int) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Order](ctx, businessId, id, "Customer")
}

// ListOrders lists orders for the business. Imported rows are excluded
// unless explicitly requested by status or type filter.
func ListOrders(ctx context.Context, status *OrderStatus, orderType *OrderType, customerName *string) ([]*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Order
	dbCtx := db.WithContext(ctx).Preload("Customer").Where("business_id = ?", businessId)

	wantImported := (status != nil && *status == OrderStatusImported) ||
		(orderType != nil && *orderType == OrderTypeImported)
	if !wantImported {
		dbCtx = dbCtx.Where("status <> ?", OrderStatusImported)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if orderType != nil && *orderType != "" {
		dbCtx = dbCtx.Where("type = ?", *orderType)
	}
	if customerName != nil && len(*customerName) > 0 {
		dbCtx = dbCtx.Where("customer_name LIKE ?", "%"+*customerName+"%")
	}
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

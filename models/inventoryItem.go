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

// InventoryItem is either a fabric roll or a finished outfit,
// discriminated by Type. Fabric rows use the length columns, outfit rows
// use the price columns plus OutfitSizeStock child rows.
type InventoryItem struct {
	ID         int      `gorm:"primary_key" json:"id"`
	BusinessId string   `gorm:"index;not null" json:"business_id"`
	Type       ItemType `gorm:"type:enum('Fabric','Outfit');not null;index" json:"type"`
	Name       string   `gorm:"index;size:100;not null" json:"name" binding:"required"`
	// optional marketplace/display alias
	DisplayName string `gorm:"size:100" json:"display_name"`
	Location    string `gorm:"size:100" json:"location"`

	// fabric
	TotalLength     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_length"`
	CurrentLength   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_length"`
	Unit            LengthUnit      `gorm:"type:enum('meters','yards');default:meters" json:"unit"`
	CostPerMeter    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_per_meter"`
	LengthPerOutfit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"length_per_outfit"`

	// outfit
	SellingPrice           decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	StitchingCost          decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"stitching_cost"`
	ParentFabricId         *int              `gorm:"index" json:"parent_fabric_id"`
	ManualSoldCount        int               `gorm:"default:0" json:"manual_sold_count"`
	ProductionCostPerPiece decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"production_cost_per_piece"`
	SizeStocks             []OutfitSizeStock `gorm:"foreignKey:ItemId" json:"size_stocks"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OutfitSizeStock holds the on-hand count of one outfit in one size.
// One row per (item, size); rows for all chart sizes are created with the
// outfit so stock commands can lock them directly.
type OutfitSizeStock struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	ItemId     int       `gorm:"uniqueIndex:idx_item_size;not null" json:"item_id"`
	Size       SizeLabel `gorm:"type:enum('S','M','L','XL','XXL');uniqueIndex:idx_item_size;not null" json:"size"`
	Qty        int       `gorm:"default:0" json:"qty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFabric struct {
	Name            string          `json:"name" binding:"required"`
	DisplayName     string          `json:"display_name"`
	Location        string          `json:"location"`
	TotalLength     decimal.Decimal `json:"total_length" binding:"required"`
	Unit            LengthUnit      `json:"unit"`
	CostPerMeter    decimal.Decimal `json:"cost_per_meter"`
	LengthPerOutfit decimal.Decimal `json:"length_per_outfit"`
}

type NewOutfit struct {
	Name           string          `json:"name" binding:"required"`
	DisplayName    string          `json:"display_name"`
	Location       string          `json:"location"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	StitchingCost  decimal.Decimal `json:"stitching_cost"`
	ParentFabricId *int            `json:"parent_fabric_id"`
}

func itemListRedisKey(businessId string) string {
	return "Items:" + businessId
}

// clearItemListCache drops the cached item listing after a committed
// write. Failures are logged, not returned: the committed row is the
// source of truth and the stale cache entry expires on its own.
func clearItemListCache(businessId string) {
	if err := config.RemoveRedisKey(itemListRedisKey(businessId)); err != nil {
		config.LogError(config.GetLogger(), "inventoryItem", "clearItemListCache", businessId, nil, err)
	}
}

// TotalQty sums the per-size stock of an outfit.
func (item *InventoryItem) TotalQty() int {
	total := 0
	for _, s := range item.SizeStocks {
		total += s.Qty
	}
	return total
}

func (input *NewFabric) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[InventoryItem](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Unit != "" && !input.Unit.Valid() {
		return errors.New("invalid length unit")
	}
	if input.TotalLength.IsNegative() || input.CostPerMeter.IsNegative() || input.LengthPerOutfit.IsNegative() {
		return errors.New("length and cost values cannot be negative")
	}
	return nil
}

func (input *NewOutfit) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[InventoryItem](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.SellingPrice.IsNegative() || input.StitchingCost.IsNegative() {
		return errors.New("price values cannot be negative")
	}
	if input.ParentFabricId != nil && *input.ParentFabricId > 0 {
		count, err := utils.ResourceCountWhere[InventoryItem](ctx, businessId, "id = ? AND type = ?", *input.ParentFabricId, ItemTypeFabric)
		if err != nil {
			return err
		}
		if count <= 0 {
			return errors.New("parent fabric not found")
		}
	}
	return nil
}

func CreateFabric(ctx context.Context, input *NewFabric) (*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = LengthUnitMeters
	}
	item := InventoryItem{
		BusinessId:      businessId,
		Type:            ItemTypeFabric,
		Name:            input.Name,
		DisplayName:     input.DisplayName,
		Location:        input.Location,
		TotalLength:     input.TotalLength,
		CurrentLength:   input.TotalLength,
		Unit:            unit,
		CostPerMeter:    input.CostPerMeter,
		LengthPerOutfit: input.LengthPerOutfit,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryCreate(tx, ctx, "InventoryItem", item.ID, &item); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return &item, nil
}

func CreateOutfit(ctx context.Context, input *NewOutfit) (*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	item := InventoryItem{
		BusinessId:     businessId,
		Type:           ItemTypeOutfit,
		Name:           input.Name,
		DisplayName:    input.DisplayName,
		Location:       input.Location,
		SellingPrice:   input.SellingPrice,
		StitchingCost:  input.StitchingCost,
		ParentFabricId: input.ParentFabricId,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// one stock row per chart size, so stock commands can row-lock them
	for _, size := range AllSizeLabels {
		row := OutfitSizeStock{
			BusinessId: businessId,
			ItemId:     item.ID,
			Size:       size,
			Qty:        0,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		item.SizeStocks = append(item.SizeStocks, row)
	}
	if err := SaveHistoryCreate(tx, ctx, "InventoryItem", item.ID, &item); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return &item, nil
}

func UpdateFabric(ctx context.Context, id int, input *NewFabric) (*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[InventoryItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if item.Type != ItemTypeFabric {
		return nil, errors.New("item is not a fabric")
	}
	oldItem := *item

	// CurrentLength is owned by the stock ledger; only TotalLength is
	// editable here and the difference is carried into CurrentLength.
	lengthDiff := input.TotalLength.Sub(item.TotalLength)
	newCurrent := item.CurrentLength.Add(lengthDiff)
	if newCurrent.IsNegative() {
		return nil, utils.ErrorInsufficientStock
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"Name":            input.Name,
		"DisplayName":     input.DisplayName,
		"Location":        input.Location,
		"TotalLength":     input.TotalLength,
		"CurrentLength":   newCurrent,
		"CostPerMeter":    input.CostPerMeter,
		"LengthPerOutfit": input.LengthPerOutfit,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx, ctx, "InventoryItem", item.ID, &oldItem, item); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return item, nil
}

func UpdateOutfit(ctx context.Context, id int, input *NewOutfit) (*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[InventoryItem](ctx, businessId, id, "SizeStocks")
	if err != nil {
		return nil, err
	}
	if item.Type != ItemTypeOutfit {
		return nil, errors.New("item is not an outfit")
	}
	oldItem := *item

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"Name":           input.Name,
		"DisplayName":    input.DisplayName,
		"Location":       input.Location,
		"SellingPrice":   input.SellingPrice,
		"StitchingCost":  input.StitchingCost,
		"ParentFabricId": input.ParentFabricId,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx, ctx, "InventoryItem", item.ID, &oldItem, item); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return item, nil
}

// DeleteInventoryItem hard-deletes an item together with its size rows
// and stock history. Irreversible.
func DeleteInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, businessId, id, "SizeStocks")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("business_id = ? AND item_id = ?", businessId, id).
		Delete(&OutfitSizeStock{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("business_id = ? AND item_id = ?", businessId, id).
		Delete(&StockHistoryEntry{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryDelete(tx, ctx, "InventoryItem", item.ID, item); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return item, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[InventoryItem](ctx, businessId, id, "SizeStocks")
}

// GetOutfitByName resolves an outfit by case-insensitive name.
// Orders store the resolved id; the name is only a display snapshot.
func GetOutfitByName(ctx context.Context, businessId string, name string) (*InventoryItem, error) {

	db := config.GetDB()
	var result InventoryItem
	err := db.WithContext(ctx).Preload("SizeStocks").
		Where("business_id = ? AND type = ? AND LOWER(name) = LOWER(?)", businessId, ItemTypeOutfit, name).
		First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func ListInventoryItems(ctx context.Context, itemType *ItemType, name *string) ([]*InventoryItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var results []*InventoryItem

	// unfiltered list is cached; filters always hit the db
	cacheable := (itemType == nil || *itemType == "") && (name == nil || *name == "")
	if cacheable {
		exists, err := config.GetRedisObject(itemListRedisKey(businessId), &results)
		if err != nil {
			return nil, err
		}
		if exists {
			return results, nil
		}
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("SizeStocks").Where("business_id = ?", businessId)
	if itemType != nil && *itemType != "" {
		dbCtx = dbCtx.Where("type = ?", *itemType)
	}
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}

	if cacheable {
		if err := config.SetRedisObject(itemListRedisKey(businessId), &results, 0); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// SizeQty returns the current count for one size of an outfit, reading
// the size rows loaded on the item.
func (item *InventoryItem) SizeQty(size SizeLabel) int {
	for _, s := range item.SizeStocks {
		if s.Size == size {
			return s.Qty
		}
	}
	return 0
}

// lockItemRow re-reads an item row under FOR UPDATE inside tx.
func lockItemRow(tx *gorm.DB, businessId string, itemId int) (*InventoryItem, error) {
	var item InventoryItem
	if err := tx.Clauses(forUpdate()).
		Where("business_id = ? AND id = ?", businessId, itemId).
		First(&item).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &item, nil
}

// lockSizeRow re-reads one outfit size row under FOR UPDATE inside tx.
func lockSizeRow(tx *gorm.DB, businessId string, itemId int, size SizeLabel) (*OutfitSizeStock, error) {
	var row OutfitSizeStock
	if err := tx.Clauses(forUpdate()).
		Where("business_id = ? AND item_id = ? AND size = ?", businessId, itemId, size).
		First(&row).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &row, nil
}

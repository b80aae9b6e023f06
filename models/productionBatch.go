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

// ProductionBatch is one fabric-cutting run converting a fabric roll
// into outfit stock. Fabric is debited at creation; outfit stock is
// credited exactly once, when the batch is received as Completed.
// CreditedAt is the single-shot guard: a batch with CreditedAt set can
// never credit again.
type ProductionBatch struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`

	FabricId   int             `gorm:"index;not null" json:"fabric_id"`
	OutfitId   int             `gorm:"index;not null" json:"outfit_id"`
	FabricUsed decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"fabric_used"`

	// declared consumption ratio and the estimate it yields
	FabricPerPiece  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"fabric_per_piece"`
	EstimatedPieces int             `gorm:"not null" json:"estimated_pieces"`

	// operator-entered plan; may legitimately differ from the estimate
	Sizes       []ProductionBatchSize `gorm:"foreignKey:BatchId" json:"sizes"`
	TotalPieces int                   `gorm:"not null" json:"total_pieces"`

	StitchingCostTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stitching_cost_total"`
	FabricCostPerPiece    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fabric_cost_per_piece"`
	StitchingCostPerPiece decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stitching_cost_per_piece"`
	TotalCostPerPiece     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost_per_piece"`

	// informational only
	Variance        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"variance"`
	VariancePercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"variance_percent"`

	Status       BatchStatus `gorm:"type:enum('In Progress','Completed');not null;index" json:"status"`
	SentDate     time.Time   `gorm:"not null" json:"sent_date"`
	ReceivedDate *time.Time  `json:"received_date"`
	CreditedAt   *time.Time  `gorm:"index" json:"credited_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductionBatchSize is the planned and received count for one size of
// a batch.
type ProductionBatchSize struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id"`
	BatchId     int       `gorm:"uniqueIndex:idx_batch_size;not null" json:"batch_id"`
	Size        SizeLabel `gorm:"type:enum('S','M','L','XL','XXL');uniqueIndex:idx_batch_size;not null" json:"size"`
	Qty         int       `gorm:"default:0" json:"qty"`
	ReceivedQty int       `gorm:"default:0" json:"received_qty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductionBatch struct {
	FabricId           int               `json:"fabric_id" binding:"required"`
	OutfitId           int               `json:"outfit_id" binding:"required"`
	FabricUsed         decimal.Decimal   `json:"fabric_used" binding:"required"`
	FabricPerPiece     decimal.Decimal   `json:"fabric_per_piece" binding:"required"`
	SizeBreakdown      map[SizeLabel]int `json:"size_breakdown" binding:"required"`
	StitchingCostTotal decimal.Decimal   `json:"stitching_cost_total"`
	SentDate           time.Time         `json:"sent_date"`
	// when set, the batch is received in the same call: fabric is
	// debited and stock credited in one transaction
	ReceivedDate *time.Time `json:"received_date"`
}

type ReceiveProductionBatchInput struct {
	ReceivedBreakdown map[SizeLabel]int `json:"received_breakdown" binding:"required"`
	Status            BatchStatus       `json:"status" binding:"required"`
	ReceivedDate      *time.Time        `json:"received_date"`
}

func sumBreakdown(breakdown map[SizeLabel]int) (int, error) {
	total := 0
	for size, qty := range breakdown {
		if !size.Valid() {
			return 0, errors.New("invalid size in breakdown")
		}
		if qty < 0 {
			return 0, errors.New("breakdown quantity cannot be negative")
		}
		total += qty
	}
	return total, nil
}

func (input *NewProductionBatch) validate(ctx context.Context, businessId string) (totalPieces int, err error) {

	if !input.FabricUsed.IsPositive() {
		return 0, errors.New("fabric used must be positive")
	}
	if !input.FabricPerPiece.IsPositive() {
		return 0, errors.New("fabric per piece must be positive")
	}
	totalPieces, err = sumBreakdown(input.SizeBreakdown)
	if err != nil {
		return 0, err
	}
	if totalPieces < 1 {
		return 0, errors.New("size breakdown must contain at least one piece")
	}

	count, err := utils.ResourceCountWhere[InventoryItem](ctx, businessId, "id = ? AND type = ?", input.FabricId, ItemTypeFabric)
	if err != nil {
		return 0, err
	}
	if count <= 0 {
		return 0, errors.New("fabric not found")
	}
	count, err = utils.ResourceCountWhere[InventoryItem](ctx, businessId, "id = ? AND type = ?", input.OutfitId, ItemTypeOutfit)
	if err != nil {
		return 0, err
	}
	if count <= 0 {
		return 0, errors.New("outfit not found")
	}
	return totalPieces, nil
}

// CreateProductionBatch starts a cutting run. The fabric is debited
// immediately regardless of status; the batch then sits In Progress
// with fabric in flight until it is received.
func CreateProductionBatch(ctx context.Context, input *NewProductionBatch) (*ProductionBatch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	totalPieces, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "productionBatch.go", "CreateProductionBatch")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)

	var fabric InventoryItem
	if err := tx.Clauses(forUpdate()).
		Where("business_id = ? AND id = ?", businessId, input.FabricId).
		First(&fabric).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if fabric.CurrentLength.LessThan(input.FabricUsed) {
		tx.Rollback()
		return nil, utils.ErrorInsufficientStock
	}

	totalDec := decimal.NewFromInt(int64(totalPieces))
	fabricCostPerPiece := input.FabricUsed.Mul(fabric.CostPerMeter).DivRound(totalDec, 4)
	stitchingCostPerPiece := input.StitchingCostTotal.DivRound(totalDec, 4)
	actualFabricPerPiece := input.FabricUsed.DivRound(totalDec, 4)
	variance := actualFabricPerPiece.Sub(input.FabricPerPiece)
	variancePercent := decimal.Zero
	if input.FabricPerPiece.IsPositive() {
		variancePercent = variance.DivRound(input.FabricPerPiece, 4).Mul(decimal.NewFromInt(100))
	}

	sentDate := input.SentDate
	if sentDate.IsZero() {
		sentDate = time.Now()
	}

	batch := ProductionBatch{
		BusinessId:            businessId,
		FabricId:              input.FabricId,
		OutfitId:              input.OutfitId,
		FabricUsed:            input.FabricUsed,
		FabricPerPiece:        input.FabricPerPiece,
		EstimatedPieces:       int(input.FabricUsed.Div(input.FabricPerPiece).IntPart()),
		TotalPieces:           totalPieces,
		StitchingCostTotal:    input.StitchingCostTotal,
		FabricCostPerPiece:    fabricCostPerPiece,
		StitchingCostPerPiece: stitchingCostPerPiece,
		TotalCostPerPiece:     fabricCostPerPiece.Add(stitchingCostPerPiece),
		Variance:              variance,
		VariancePercent:       variancePercent,
		Status:                BatchStatusInProgress,
		SentDate:              sentDate,
	}
	if err := tx.Create(&batch).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, size := range AllSizeLabels {
		qty, ok := input.SizeBreakdown[size]
		if !ok || qty == 0 {
			continue
		}
		row := ProductionBatchSize{
			BusinessId: businessId,
			BatchId:    batch.ID,
			Size:       size,
			Qty:        qty,
		}
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		batch.Sizes = append(batch.Sizes, row)
	}

	// fabric leaves stock now, whether or not the pieces ever come back
	_, err = ApplyFabricDelta(tx, ctx, businessId, input.FabricId, StockEntryCut, input.FabricUsed, StockMutationRef{
		StatusLabel:   string(BatchStatusInProgress),
		ReferenceType: StockReferenceTypeProductionBatch,
		ReferenceId:   batch.ID,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if input.ReceivedDate != nil {
		if err := creditBatch(tx, ctx, businessId, &batch, input.SizeBreakdown, *input.ReceivedDate); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := SaveHistoryCreate(tx, ctx, "ProductionBatch", batch.ID, &batch); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return &batch, nil
}

// creditBatch credits the received pieces to the outfit's size buckets
// and stamps the per-piece production cost. The credited_at guard makes
// this single-shot: a batch that has already credited is rejected here
// no matter which call path reached it.
func creditBatch(tx *gorm.DB, ctx context.Context, businessId string, batch *ProductionBatch, breakdown map[SizeLabel]int, receivedDate time.Time) error {

	if batch.CreditedAt != nil {
		return errors.New("batch has already credited stock")
	}

	for _, size := range AllSizeLabels {
		qty := breakdown[size]
		if qty == 0 {
			continue
		}
		_, err := ApplySizeDelta(tx, ctx, businessId, batch.OutfitId, size, StockEntryOutfitAdd, qty, StockMutationRef{
			StatusLabel:   string(BatchStatusCompleted),
			ReferenceType: StockReferenceTypeProductionBatch,
			ReferenceId:   batch.ID,
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&ProductionBatchSize{}).
			Where("batch_id = ? AND size = ?", batch.ID, size).
			Update("received_qty", qty).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	// guard in SQL too: only an uncredited row takes the update
	result := tx.Model(&ProductionBatch{}).
		Where("id = ? AND credited_at IS NULL", batch.ID).
		Updates(map[string]interface{}{
			"Status":       BatchStatusCompleted,
			"ReceivedDate": receivedDate,
			"CreditedAt":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("batch has already credited stock")
	}
	batch.Status = BatchStatusCompleted
	batch.ReceivedDate = &receivedDate
	batch.CreditedAt = &now

	// the outfit remembers what its last production run cost
	if err := tx.Model(&InventoryItem{}).
		Where("business_id = ? AND id = ?", businessId, batch.OutfitId).
		Update("production_cost_per_piece", batch.TotalCostPerPiece).Error; err != nil {
		return err
	}
	return nil
}

// ReceiveProductionBatch reconciles a batch with what actually came
// back. Completing requires the received total to equal the declared
// total exactly; otherwise nothing moves.
func ReceiveProductionBatch(ctx context.Context, id int, input *ReceiveProductionBatchInput) (*ProductionBatch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if input.Status != BatchStatusInProgress && input.Status != BatchStatusCompleted {
		return nil, errors.New("invalid batch status")
	}
	receivedTotal, err := sumBreakdown(input.ReceivedBreakdown)
	if err != nil {
		return nil, err
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "productionBatch.go", "ReceiveProductionBatch")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	tx := beginTx(ctx)
	var batch ProductionBatch
	if err := tx.Clauses(forUpdate()).
		Where("business_id = ? AND id = ?", businessId, id).
		First(&batch).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	oldBatch := batch

	if input.Status == BatchStatusCompleted {
		if receivedTotal != batch.TotalPieces {
			tx.Rollback()
			return nil, utils.ErrorQuantityMismatch
		}
		receivedDate := time.Now()
		if input.ReceivedDate != nil {
			receivedDate = *input.ReceivedDate
		}
		if err := creditBatch(tx, ctx, businessId, &batch, input.ReceivedBreakdown, receivedDate); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		// partial progress note: record counts, no stock movement
		for size, qty := range input.ReceivedBreakdown {
			if err := tx.Model(&ProductionBatchSize{}).
				Where("batch_id = ? AND size = ?", batch.ID, size).
				Update("received_qty", qty).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := SaveHistoryUpdate(tx, ctx, "ProductionBatch", batch.ID, &oldBatch, &batch); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return &batch, nil
}

func GetProductionBatch(ctx context.Context, id int) (*ProductionBatch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[ProductionBatch](ctx, businessId, id, "Sizes")
}

func ListProductionBatches(ctx context.Context, status *BatchStatus) ([]*ProductionBatch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*ProductionBatch
	dbCtx := db.WithContext(ctx).Preload("Sizes").Where("business_id = ?", businessId)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("sent_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

package models

import (
	"context"
	"errors"

	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockMutationRef carries the document context a stock delta is applied
// for. It ends up verbatim on the ledger entry and in the outbox payload.
type StockMutationRef struct {
	OrderNumber   string
	StatusLabel   string
	ReferenceType StockReferenceType
	ReferenceId   int
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// ApplyFabricDelta applies one signed length delta to a fabric inside
// the caller's transaction. The item row is re-read under FOR UPDATE, so
// the non-negative gate holds under concurrent writers. Exactly one
// ledger entry and one outbox record are written in the same tx.
//
// The caller owns commit/rollback; this function never commits.
func ApplyFabricDelta(tx *gorm.DB, ctx context.Context, businessId string, itemId int, entryType StockEntryType, quantity decimal.Decimal, ref StockMutationRef) (*StockHistoryEntry, error) {

	if !entryType.Valid() || entryType == StockEntryOutfitAdd || entryType == StockEntryOutfitSold || entryType == StockEntryOutfitSoldManual {
		return nil, errors.New("invalid entry type for fabric")
	}
	if !quantity.IsPositive() {
		return nil, errors.New("quantity must be positive")
	}

	item, err := lockItemRow(tx, businessId, itemId)
	if err != nil {
		return nil, err
	}
	if item.Type != ItemTypeFabric {
		return nil, errors.New("item is not a fabric")
	}

	delta := quantity
	if entryType.IsDeduction() {
		if item.CurrentLength.LessThan(quantity) {
			return nil, utils.ErrorInsufficientStock
		}
		delta = quantity.Neg()
	}

	if err := tx.Exec("UPDATE inventory_items SET current_length = current_length + ? WHERE id = ?", delta, item.ID).Error; err != nil {
		return nil, err
	}

	entry, err := appendStockHistory(tx, ctx, businessId, item, entryType, quantity, nil, ref)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ApplySizeDelta applies one signed count delta to a single size bucket
// of an outfit, under the same locking and ledger rules as
// ApplyFabricDelta. Other sizes are untouched.
func ApplySizeDelta(tx *gorm.DB, ctx context.Context, businessId string, itemId int, size SizeLabel, entryType StockEntryType, quantity int, ref StockMutationRef) (*StockHistoryEntry, error) {

	if !entryType.Valid() || entryType == StockEntryCut {
		return nil, errors.New("invalid entry type for outfit")
	}
	if !size.Valid() {
		return nil, errors.New("invalid size")
	}
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}

	item, err := lockItemRow(tx, businessId, itemId)
	if err != nil {
		return nil, err
	}
	if item.Type != ItemTypeOutfit {
		return nil, errors.New("item is not an outfit")
	}

	// manual-sold counts track legacy sales without touching size rows
	if entryType == StockEntryOutfitSoldManual {
		if err := tx.Exec("UPDATE inventory_items SET manual_sold_count = manual_sold_count + ? WHERE id = ?", quantity, item.ID).Error; err != nil {
			return nil, err
		}
		return appendStockHistory(tx, ctx, businessId, item, entryType, decimal.NewFromInt(int64(quantity)), &size, ref)
	}

	row, err := lockSizeRow(tx, businessId, itemId, size)
	if err != nil {
		return nil, err
	}

	delta := quantity
	if entryType.IsDeduction() {
		if row.Qty < quantity {
			return nil, utils.ErrorInsufficientStock
		}
		delta = -quantity
	}

	if err := tx.Exec("UPDATE outfit_size_stocks SET qty = qty + ? WHERE id = ?", delta, row.ID).Error; err != nil {
		return nil, err
	}

	return appendStockHistory(tx, ctx, businessId, item, entryType, decimal.NewFromInt(int64(quantity)), &size, ref)
}

func appendStockHistory(tx *gorm.DB, ctx context.Context, businessId string, item *InventoryItem, entryType StockEntryType, amount decimal.Decimal, size *SizeLabel, ref StockMutationRef) (*StockHistoryEntry, error) {

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	entry := StockHistoryEntry{
		BusinessId:    businessId,
		ItemId:        item.ID,
		EntryType:     entryType,
		AmountUsed:    amount,
		Size:          size,
		OrderNumber:   ref.OrderNumber,
		StatusLabel:   ref.StatusLabel,
		ReferenceType: ref.ReferenceType,
		ReferenceId:   ref.ReferenceId,
		UserId:        userId,
		UserName:      userName,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	if err := PublishStockEvent(ctx, tx, businessId, &entry, item.Type, StockEventActionCreate); err != nil {
		return nil, err
	}
	return &entry, nil
}

// NewAdjustment is the manual stock correction input (operator surface).
type NewAdjustment struct {
	EntryType StockEntryType  `json:"entry_type" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Size      *SizeLabel      `json:"size"`
	Reason    string          `json:"reason"`
}

// AdjustStock applies a manual ADJUST_ADD / ADJUST_DEDUCT to a fabric or
// one size bucket of an outfit. Runs in its own transaction.
func AdjustStock(ctx context.Context, itemId int, input *NewAdjustment) (*StockHistoryEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if input.EntryType != StockEntryAdjustAdd && input.EntryType != StockEntryAdjustDeduct {
		return nil, errors.New("adjustment entry type must be ADJUST_ADD or ADJUST_DEDUCT")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, businessId, itemId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "stockCommands.go", "AdjustStock")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	dbTx := beginTx(ctx)
	ref := StockMutationRef{
		StatusLabel:   input.Reason,
		ReferenceType: StockReferenceTypeAdjustment,
	}

	var entry *StockHistoryEntry
	if item.Type == ItemTypeFabric {
		entry, err = ApplyFabricDelta(dbTx, ctx, businessId, itemId, input.EntryType, input.Quantity, ref)
	} else {
		if input.Size == nil {
			dbTx.Rollback()
			return nil, errors.New("size is required for outfit adjustments")
		}
		if !input.Quantity.IsInteger() {
			dbTx.Rollback()
			return nil, errors.New("outfit quantity must be a whole number")
		}
		entry, err = ApplySizeDelta(dbTx, ctx, businessId, itemId, *input.Size, input.EntryType, int(input.Quantity.IntPart()), ref)
	}
	if err != nil {
		dbTx.Rollback()
		return nil, err
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	clearItemListCache(businessId)
	return entry, nil
}

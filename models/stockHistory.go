package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// StockHistoryEntry is the append-only ledger behind every stock
// mutation. Exactly one entry is written per applied delta, in the same
// transaction as the quantity update. AmountUsed is always positive; the
// direction lives in EntryType.
type StockHistoryEntry struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	ItemId     int             `gorm:"index;not null" json:"item_id"`
	EntryType  StockEntryType  `gorm:"type:enum('CUT','ADJUST_ADD','ADJUST_DEDUCT','OUTFIT_ADD','OUTFIT_SOLD','OUTFIT_SOLD_MANUAL','CANCEL_RETURN');not null" json:"entry_type"`
	AmountUsed decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_used"`
	Size       *SizeLabel      `gorm:"type:enum('S','M','L','XL','XXL')" json:"size"`

	// document that caused the entry
	OrderNumber   string             `gorm:"size:100" json:"order_number"`
	StatusLabel   string             `gorm:"size:100" json:"status_label"`
	ReferenceType StockReferenceType `gorm:"type:enum('ORD','PB','ADJ')" json:"reference_type"`
	ReferenceId   int                `gorm:"index" json:"reference_id"`

	// actor, resolved from the session context at write time
	UserId   int    `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func ListStockHistory(ctx context.Context, itemId int) ([]*StockHistoryEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// item must belong to the business
	if err := utils.ValidateResourceId[InventoryItem](ctx, businessId, itemId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*StockHistoryEntry
	err := db.WithContext(ctx).
		Where("business_id = ? AND item_id = ?", businessId, itemId).
		Order("created_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteStockHistoryEntry removes one ledger entry without touching the
// quantity it recorded. Operator-password gated at the handler, same as
// order delete. The ledger is auditable but not tamper-proof.
func DeleteStockHistoryEntry(ctx context.Context, id int) (*StockHistoryEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var entry StockHistoryEntry
	if err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).
		First(&entry).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&entry).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryDelete(tx, ctx, "StockHistoryEntry", entry.ID, &entry); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &entry, tx.Commit().Error
}

package workflow

import (
	"fmt"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RebuildStockForBusiness recomputes every item's on-hand quantities from
// the stock ledger. The ledger is the source of truth; the denormalized
// columns (current_length, size qty, manual_sold_count) are derived and
// can drift after manual DB surgery or a bad import. Run from
// cmd/stock-rebuild, never from request handlers.
func RebuildStockForBusiness(tx *gorm.DB, logger *logrus.Logger, businessId string) error {
	if tx == nil {
		return fmt.Errorf("rebuild stock: tx is nil")
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	if businessId == "" {
		return fmt.Errorf("rebuild stock: business id is required")
	}

	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		return err
	}
	defer ReleaseBusinessPostingLock(tx, businessId)

	var items []*models.InventoryItem
	if err := tx.Where("business_id = ?", businessId).Find(&items).Error; err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"business_id": businessId,
		"item_count":  len(items),
	}).Info("stock.rebuild.start")

	for _, item := range items {
		switch item.Type {
		case models.ItemTypeFabric:
			if err := rebuildFabric(tx, businessId, item); err != nil {
				return err
			}
		case models.ItemTypeOutfit:
			if err := rebuildOutfit(tx, businessId, item); err != nil {
				return err
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"business_id": businessId,
		"item_count":  len(items),
	}).Info("stock.rebuild.end")
	return nil
}

// rebuildFabric derives current_length = total_length + additions - deductions.
// Fabric creation sets current_length to total_length without a ledger entry,
// so total_length is the opening balance.
func rebuildFabric(tx *gorm.DB, businessId string, item *models.InventoryItem) error {
	var net decimal.Decimal
	err := tx.Raw(`
		SELECT COALESCE(SUM(CASE WHEN entry_type IN (?, ?) THEN -amount_used ELSE amount_used END), 0)
		FROM stock_history_entries
		WHERE business_id = ? AND item_id = ?
	`, models.StockEntryCut, models.StockEntryAdjustDeduct, businessId, item.ID).Scan(&net).Error
	if err != nil {
		return err
	}
	current := item.TotalLength.Add(net)
	return tx.Model(&models.InventoryItem{}).
		Where("business_id = ? AND id = ?", businessId, item.ID).
		Update("current_length", current).Error
}

// rebuildOutfit derives each size's qty and the manual sold count from the
// ledger. Size rows missing a single ledger entry still get reset to zero.
func rebuildOutfit(tx *gorm.DB, businessId string, item *models.InventoryItem) error {
	for _, size := range models.AllSizeLabels {
		var qty int
		err := tx.Raw(`
			SELECT COALESCE(SUM(CASE WHEN entry_type IN (?, ?) THEN -amount_used ELSE amount_used END), 0)
			FROM stock_history_entries
			WHERE business_id = ? AND item_id = ? AND size = ? AND entry_type IN (?, ?, ?, ?)
		`, models.StockEntryOutfitSold, models.StockEntryAdjustDeduct,
			businessId, item.ID, size,
			models.StockEntryOutfitAdd, models.StockEntryOutfitSold,
			models.StockEntryAdjustAdd, models.StockEntryAdjustDeduct).Scan(&qty).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.OutfitSizeStock{}).
			Where("item_id = ? AND size = ?", item.ID, size).
			Update("qty", qty).Error
		if err != nil {
			return err
		}
	}

	var manualSold int
	err := tx.Raw(`
		SELECT COALESCE(SUM(amount_used), 0)
		FROM stock_history_entries
		WHERE business_id = ? AND item_id = ? AND entry_type = ?
	`, businessId, item.ID, models.StockEntryOutfitSoldManual).Scan(&manualSold).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.InventoryItem{}).
		Where("business_id = ? AND id = ?", businessId, item.ID).
		Update("manual_sold_count", manualSold).Error
}

package models

import (
	"log"

	"github.com/mmgarment/stitchbooks_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &User{},
		&Customer{},
		&InventoryItem{}, &OutfitSizeStock{}, &StockHistoryEntry{},
		&Order{},
		&ProductionBatch{}, &ProductionBatchSize{},
		&ChangeHistory{},
		&StockEventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

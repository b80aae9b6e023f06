// stock-rebuild recomputes denormalized stock columns (fabric
// current_length, outfit size quantities, manual sold counts) from the
// stock ledger. Use after manual DB surgery or a suspect import.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... go run ./cmd/stock-rebuild --business-id <uuid>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return workflow.RebuildStockForBusiness(tx, logger, strings.TrimSpace(*businessID))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Stock rebuild completed")
}

package models_test

import (
	"testing"

	"github.com/mmgarment/stitchbooks_backend/models"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.OrderStatus
		to      models.OrderStatus
		allowed bool
	}{
		{models.OrderStatusSentToTailor, models.OrderStatusReceivedFromTailor, true},
		{models.OrderStatusSentToTailor, models.OrderStatusReadyToShip, true},
		{models.OrderStatusSentToTailor, models.OrderStatusShipped, false},
		{models.OrderStatusReceivedFromTailor, models.OrderStatusShipped, true},
		{models.OrderStatusReceivedFromTailor, models.OrderStatusSentToTailor, false},
		{models.OrderStatusReadyToShip, models.OrderStatusShipped, true},
		{models.OrderStatusReadyToShip, models.OrderStatusReceivedFromTailor, false},
		{models.OrderStatusShipped, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusReadyToShip, false},
		{models.OrderStatusCancelled, models.OrderStatusShipped, false},

		// any non-terminal status can be cancelled
		{models.OrderStatusSentToTailor, models.OrderStatusCancelled, true},
		{models.OrderStatusReceivedFromTailor, models.OrderStatusCancelled, true},
		{models.OrderStatusReadyToShip, models.OrderStatusCancelled, true},

		// imported orders are frozen
		{models.OrderStatusImported, models.OrderStatusCancelled, false},
		{models.OrderStatusImported, models.OrderStatusShipped, false},
		{models.OrderStatusImported, models.OrderStatusReadyToShip, false},
	}
	for _, c := range cases {
		if got := models.CanTransition(c.from, c.to); got != c.allowed {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[models.OrderStatus]bool{
		models.OrderStatusSentToTailor:       false,
		models.OrderStatusReceivedFromTailor: false,
		models.OrderStatusReadyToShip:        false,
		models.OrderStatusShipped:            true,
		models.OrderStatusCancelled:          true,
		models.OrderStatusImported:           true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%q.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestStockEntryTypeDirection(t *testing.T) {
	deductions := map[models.StockEntryType]bool{
		models.StockEntryCut:              true,
		models.StockEntryAdjustDeduct:     true,
		models.StockEntryOutfitSold:       true,
		models.StockEntryOutfitSoldManual: true,
		models.StockEntryAdjustAdd:        false,
		models.StockEntryOutfitAdd:        false,
		models.StockEntryCancelReturn:     false,
	}
	for entryType, want := range deductions {
		if got := entryType.IsDeduction(); got != want {
			t.Fatalf("%q.IsDeduction() = %v, want %v", entryType, got, want)
		}
	}
}

// The item listing endpoint validates its type filter before querying;
// anything outside the two item kinds must be rejected.
func TestItemTypeValid(t *testing.T) {
	cases := map[models.ItemType]bool{
		models.ItemTypeFabric:     true,
		models.ItemTypeOutfit:     true,
		models.ItemType("fabric"): false,
		models.ItemType("Shoes"):  false,
		models.ItemType(""):       false,
	}
	for itemType, want := range cases {
		if got := itemType.Valid(); got != want {
			t.Fatalf("%q.Valid() = %v, want %v", itemType, got, want)
		}
	}
}

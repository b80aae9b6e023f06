package models

type ItemType string

const (
	ItemTypeFabric ItemType = "Fabric"
	ItemTypeOutfit ItemType = "Outfit"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeFabric || t == ItemTypeOutfit
}

type LengthUnit string

const (
	LengthUnitMeters LengthUnit = "meters"
	LengthUnitYards  LengthUnit = "yards"
)

func (u LengthUnit) Valid() bool {
	return u == LengthUnitMeters || u == LengthUnitYards
}

type SizeLabel string

const (
	SizeS   SizeLabel = "S"
	SizeM   SizeLabel = "M"
	SizeL   SizeLabel = "L"
	SizeXL  SizeLabel = "XL"
	SizeXXL SizeLabel = "XXL"
)

// AllSizeLabels is the fixed size chart, in display order.
var AllSizeLabels = []SizeLabel{SizeS, SizeM, SizeL, SizeXL, SizeXXL}

func (s SizeLabel) Valid() bool {
	for _, l := range AllSizeLabels {
		if s == l {
			return true
		}
	}
	return false
}

type StockEntryType string

const (
	StockEntryCut              StockEntryType = "CUT"
	StockEntryAdjustAdd        StockEntryType = "ADJUST_ADD"
	StockEntryAdjustDeduct     StockEntryType = "ADJUST_DEDUCT"
	StockEntryOutfitAdd        StockEntryType = "OUTFIT_ADD"
	StockEntryOutfitSold       StockEntryType = "OUTFIT_SOLD"
	StockEntryOutfitSoldManual StockEntryType = "OUTFIT_SOLD_MANUAL"
	StockEntryCancelReturn     StockEntryType = "CANCEL_RETURN"
)

// IsDeduction reports whether the entry type removes quantity.
// The stored amount is always positive; the sign lives in the type.
func (t StockEntryType) IsDeduction() bool {
	switch t {
	case StockEntryCut, StockEntryAdjustDeduct, StockEntryOutfitSold, StockEntryOutfitSoldManual:
		return true
	}
	return false
}

func (t StockEntryType) Valid() bool {
	switch t {
	case StockEntryCut, StockEntryAdjustAdd, StockEntryAdjustDeduct,
		StockEntryOutfitAdd, StockEntryOutfitSold, StockEntryOutfitSoldManual,
		StockEntryCancelReturn:
		return true
	}
	return false
}

type OrderType string

const (
	OrderTypeTailoring OrderType = "Tailoring"
	OrderTypeStock     OrderType = "Stock"
	OrderTypeLegacy    OrderType = "Legacy"
	OrderTypeImported  OrderType = "Imported"
)

type OrderStatus string

const (
	OrderStatusSentToTailor       OrderStatus = "Sent to Tailor"
	OrderStatusReceivedFromTailor OrderStatus = "Received from Tailor"
	OrderStatusReadyToShip        OrderStatus = "Ready to Ship"
	OrderStatusShipped            OrderStatus = "Order Shipped (Completed)"
	OrderStatusCancelled          OrderStatus = "Cancelled"
	OrderStatusImported           OrderStatus = "Imported"
)

// IsTerminal reports whether no further transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusShipped || s == OrderStatusCancelled || s == OrderStatusImported
}

// CanTransition encodes the order state machine:
// Sent to Tailor -> {Received from Tailor, Ready to Ship} -> Order Shipped (Completed),
// Cancelled reachable from any non-terminal state.
// Imported rows never participate in transitions.
func CanTransition(from OrderStatus, to OrderStatus) bool {
	if from == OrderStatusImported || to == OrderStatusImported {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	switch from {
	case OrderStatusSentToTailor:
		return to == OrderStatusReceivedFromTailor || to == OrderStatusReadyToShip
	case OrderStatusReceivedFromTailor, OrderStatusReadyToShip:
		return to == OrderStatusShipped
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodPrepaid PaymentMethod = "Prepaid"
	PaymentMethodCOD     PaymentMethod = "COD"
)

type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "In Progress"
	BatchStatusCompleted  BatchStatus = "Completed"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "Admin"
	UserRoleOperator UserRole = "Operator"
)

// StockReferenceType tags the document that caused a stock history entry.
type StockReferenceType string

const (
	StockReferenceTypeOrder           StockReferenceType = "ORD"
	StockReferenceTypeProductionBatch StockReferenceType = "PB"
	StockReferenceTypeAdjustment      StockReferenceType = "ADJ"
)

type StockEventAction string

const (
	StockEventActionCreate StockEventAction = "CREATE"
	StockEventActionUpdate StockEventAction = "UPDATE"
	StockEventActionDelete StockEventAction = "DELETE"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"gorm.io/gorm"
)

// StockEventRecord is the transactional outbox row for stock mutations.
// It is written in the same transaction as the quantity update and the
// ledger entry, and published to Pub/Sub after commit by the dispatcher
// in the workflow package.
type StockEventRecord struct {
	ID            int                `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	BusinessId    string             `gorm:"size:64;not null;index" json:"business_id"`
	OccurredAt    time.Time          `gorm:"index;not null" json:"occurred_at"`
	ReferenceId   int                `json:"reference_id"`
	ReferenceType StockReferenceType `gorm:"type:enum('ORD','PB','ADJ')" json:"reference_type"`
	Action        StockEventAction   `gorm:"type:enum('CREATE','UPDATE','DELETE')" json:"action"`
	Payload       []byte             `gorm:"type:blob" json:"payload"`

	// publish metadata (publish happens after commit via dispatcher)
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// stockEventPayload is what downstream consumers see for one mutation.
type stockEventPayload struct {
	ItemId      int            `json:"item_id"`
	ItemType    ItemType       `json:"item_type"`
	EntryType   StockEntryType `json:"entry_type"`
	AmountUsed  string         `json:"amount_used"`
	Size        *SizeLabel     `json:"size,omitempty"`
	OrderNumber string         `json:"order_number,omitempty"`
}

// PublishStockEvent writes the outbox record inside the caller's
// transaction. It does NOT talk to Pub/Sub; the dispatcher does that
// after commit.
func PublishStockEvent(ctx context.Context, tx *gorm.DB, businessId string, entry *StockHistoryEntry, itemType ItemType, action StockEventAction) error {

	payload, err := json.Marshal(stockEventPayload{
		ItemId:      entry.ItemId,
		ItemType:    itemType,
		EntryType:   entry.EntryType,
		AmountUsed:  entry.AmountUsed.String(),
		Size:        entry.Size,
		OrderNumber: entry.OrderNumber,
	})
	if err != nil {
		return err
	}

	record := StockEventRecord{
		BusinessId:    businessId,
		OccurredAt:    time.Now(),
		ReferenceId:   entry.ReferenceId,
		ReferenceType: entry.ReferenceType,
		Action:        action,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ConvertToStockEventMessage maps an outbox row onto the wire message.
func ConvertToStockEventMessage(record StockEventRecord) config.StockEventMessage {
	return config.StockEventMessage{
		ID:            record.ID,
		BusinessId:    record.BusinessId,
		OccurredAt:    record.OccurredAt,
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Action:        string(record.Action),
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}

// ReplayDeadStockEvents re-queues DEAD/FAILED outbox rows for another
// publish attempt. Admin-only operational endpoint.
func ReplayDeadStockEvents(ctx context.Context, businessId string) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&StockEventRecord{}).
		Where("business_id = ? AND publish_status IN ?", businessId, []string{OutboxPublishStatusDead, OutboxPublishStatusFailed}).
		Updates(map[string]interface{}{
			"publish_status":   OutboxPublishStatusPending,
			"publish_attempts": 0,
			"next_attempt_at":  nil,
			"locked_at":        nil,
			"locked_by":        nil,
		})
	return result.RowsAffected, result.Error
}

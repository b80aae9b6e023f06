package models

import (
	"context"
	"encoding/json"
	"errors"

	"time"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"gorm.io/gorm"
)

// ChangeHistory is the free-form audit log. One row per create, update
// or delete of a document, written inside the mutating transaction.
type ChangeHistory struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text" json:"description"`
	ReferenceId   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:100" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	ctx context.Context,
	actionType string,
	referenceType string,
	referenceId int,
	before interface{},
	after interface{}) error {

	var history ChangeHistory

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	history.BusinessId = businessId
	history.ActionType = actionType
	history.Before = string(b)
	history.After = string(a)
	history.Description = actionType + " " + referenceType
	history.ReferenceId = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName

	return tx.Create(&history).Error
}

func SaveHistoryCreate(tx *gorm.DB, ctx context.Context, referenceType string, id int, obj interface{}) error {
	return createHistory(tx, ctx, "CREATE", referenceType, id, nil, obj)
}

func SaveHistoryUpdate(tx *gorm.DB, ctx context.Context, referenceType string, id int, before interface{}, after interface{}) error {
	return createHistory(tx, ctx, "UPDATE", referenceType, id, before, after)
}

func SaveHistoryDelete(tx *gorm.DB, ctx context.Context, referenceType string, id int, obj interface{}) error {
	return createHistory(tx, ctx, "DELETE", referenceType, id, obj, nil)
}

func GetChangeHistories(ctx context.Context, referenceId *int, referenceType *string, userId *int) ([]*ChangeHistory, error) {

	db := config.GetDB()
	var results []*ChangeHistory

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if referenceId != nil && *referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}
	if referenceType != nil && len(*referenceType) > 0 {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if userId != nil && *userId > 0 {
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"gorm.io/gorm"
)

// Customer is a normalized customer entity. Orders carry a customer_id
// foreign key; the free-form name on the order is only a display
// snapshot for import rows.
type Customer struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Phone      string    `gorm:"size:20" json:"phone"`
	Address    string    `gorm:"type:text" json:"address"`
	City       string    `gorm:"size:100" json:"city"`
	State      string    `gorm:"size:100" json:"state"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
}

func (input *NewCustomer) validate(ctx context.Context, businessId string, id int) error {
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

// FindOrCreateCustomerByName resolves a customer by case-insensitive
// name inside the caller's transaction, creating one when missing.
// Contact fields are filled on create only, never overwritten.
func FindOrCreateCustomerByName(tx *gorm.DB, ctx context.Context, businessId string, input *NewCustomer) (*Customer, error) {

	if input.Name == "" {
		return nil, errors.New("customer name is required")
	}

	var customer Customer
	err := tx.Where("business_id = ? AND LOWER(name) = LOWER(?)", businessId, input.Name).
		First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	customer = Customer{
		BusinessId: businessId,
		Name:       input.Name,
		Phone:      input.Phone,
		Address:    input.Address,
		City:       input.City,
		State:      input.State,
	}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	customer, err := FindOrCreateCustomerByName(tx.WithContext(ctx), ctx, businessId, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return customer, tx.Commit().Error
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Phone":   input.Phone,
		"Address": input.Address,
		"City":    input.City,
		"State":   input.State,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Customer](ctx, businessId, id)
}

func ListCustomers(ctx context.Context, name *string) ([]*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Customer
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

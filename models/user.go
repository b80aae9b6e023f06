package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"golang.org/x/crypto/bcrypt"
)

// User is an operator account. Role gates the admin-only surfaces
// (operator registration, outbox replay, business management).
type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index" json:"business_id"`
	Username   string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email      *string   `gorm:"size:100" json:"email"`
	Phone      string    `gorm:"size:20" json:"phone"`
	Password   string    `gorm:"size:255;not null" json:"password"`
	IsActive   *bool     `gorm:"not null" json:"is_active"`
	Role       UserRole  `gorm:"type:enum('Admin','Operator');default:Operator" json:"role"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

type LoginInfo struct {
	Token        string   `json:"token"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role"`
	BusinessName string   `json:"business_name"`
}

/*
caches:
	User:$username
	Tokens:$username
	Token:$token
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Username)
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func tokenLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	user := User{}

	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return &result, errors.New("invalid username or password")
	}

	if user.IsActive == nil || !*user.IsActive {
		return &result, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return &result, err
	}
	result.Token = token
	result.Name = user.Name
	result.Role = user.Role

	if user.BusinessId != "" {
		business, err := GetBusinessById(ctx, user.BusinessId)
		if err == nil {
			result.BusinessName = business.Name
		}
	}

	// add the new token to the user's token set so password changes can
	// revoke every session
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, user.Username, tokenLifespan()); err != nil {
		return &result, err
	}

	return &result, nil
}

// Logout destroys the current session token.
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + fmt.Sprint(token)); err != nil {
		return false, nil
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

func (user *User) DestroyAllSessions(ctx context.Context) error {
	tokens, err := config.GetRedisSetMembers("Tokens:" + user.Username)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if err := config.RemoveRedisKey("Token:" + t); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("Tokens:" + user.Username)
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {

	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := config.SetRedisObject("User:"+username, &user, tokenLifespan()); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// CreateUser registers an operator. Admin only; enforced at the handler.
func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, err
		}
	}
	if err := utils.ValidateUnique[User](ctx, "", "username", input.Username, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleOperator
	}
	if role != UserRoleAdmin && role != UserRoleOperator {
		return nil, errors.New("invalid role")
	}

	user := User{
		BusinessId: businessId,
		Username:   input.Username,
		Name:       input.Name,
		Email:      utils.NilIfEmpty(input.Email),
		Phone:      input.Phone,
		Password:   string(hashed),
		IsActive:   utils.NewTrue(),
		Role:       role,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, errors.New("username already exists")
		}
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Order("username").Find(&results).Error; err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	user, err := utils.FetchModel[User](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"IsActive": isActive,
	}).Error
	if err != nil {
		return nil, err
	}

	// caching
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	if !isActive {
		if err := user.DestroyAllSessions(ctx); err != nil {
			return nil, err
		}
	}
	user.PrepareGive()
	return user, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {

	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return nil, errors.New("user not found")
	}

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, utils.ErrorUnauthorized
	}
	if len(newPassword) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"Password": string(hashed),
	}).Error
	if err != nil {
		return nil, err
	}

	// caching: drop the cached user and revoke every live session
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	if err := user.DestroyAllSessions(ctx); err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// VerifyActingUserPassword re-checks the acting operator's password.
// Used as the confirmation gate for destructive actions (order delete,
// ledger entry delete).
func VerifyActingUserPassword(ctx context.Context, password string) error {

	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return utils.ErrorUnauthorized
	}
	user, err := GetUserByUsername(ctx, username)
	if err != nil {
		return utils.ErrorUnauthorized
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return utils.ErrorUnauthorized
	}
	return nil
}

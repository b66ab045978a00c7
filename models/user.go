package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CurrentDataModelVersion is the target of the per-user data migration.
// Version 2 merged the legacy seed inventory into the unified catalog.
const CurrentDataModelVersion = 2

type User struct {
	ID               string    `gorm:"primary_key;size:36" json:"id"`
	Username         string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name             string    `gorm:"size:100" json:"name"`
	Email            *string   `gorm:"size:100;unique" json:"email"`
	Password         string    `gorm:"size:255;not null" json:"password"`
	Role             UserRole  `gorm:"type:enum('A','G');default:'G'" json:"role"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	DataModelVersion int       `gorm:"not null;default:1" json:"data_model_version"`
	PublicProfile    *bool     `gorm:"not null;default:false" json:"public_profile"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserDeviceToken stores one opaque push-registration token. Insertion
// dedups on (user_id, token); delivery is out of scope.
type UserDeviceToken struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    string    `gorm:"size:36;not null;uniqueIndex:idx_user_token" json:"user_id"`
	Token     string    `gorm:"size:255;not null;uniqueIndex:idx_user_token" json:"token"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewUser struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type LoginInfo struct {
	Token            string `json:"token"`
	UserId           string `json:"user_id"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	DataModelVersion int    `json:"data_model_version"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	username := html.EscapeString(strings.TrimSpace(input.Username))
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(input.Password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:               uuid.NewString(),
		Username:         username,
		Name:             input.Name,
		Email:            utils.NilIfEmpty(input.Email),
		Password:         string(hashed),
		Role:             UserRoleGrower,
		IsActive:         utils.NewTrue(),
		DataModelVersion: CurrentDataModelVersion,
		PublicProfile:    utils.NewFalse(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	user := User{}

	// user lookup is cached per username
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return nil, errors.New("invalid username or password")
		}
		if err := config.SetRedisObject("User:"+username, &user, time.Hour); err != nil {
			return nil, err
		}
	}

	if !utils.DereferencePtr(user.IsActive) {
		return nil, errors.New("account is disabled")
	}

	err = utils.ComparePassword(user.Password, password)
	if err != nil && errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, errors.New("invalid username or password")
	} else if err != nil {
		return nil, err
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:            token,
		UserId:           user.ID,
		Name:             user.Name,
		Role:             string(user.Role),
		DataModelVersion: user.DataModelVersion,
	}, nil
}

func GetProfile(ctx context.Context) (*User, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", userId).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	user.PrepareGive()
	return &user, nil
}

func SetPublicProfile(ctx context.Context, public bool) error {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&User{}).Where("id = ?", userId).
		Update("PublicProfile", public).Error
}

// RegisterDeviceToken persists one push-registration token, ignoring
// duplicates. The token set lives with the profile record.
func RegisterDeviceToken(ctx context.Context, token string) error {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}

	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&UserDeviceToken{}).
		Where("user_id = ? AND token = ?", userId, token).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&UserDeviceToken{UserId: userId, Token: token}).Error
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) error {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", userId).Take(&user).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return errors.New("invalid password")
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Model(&user).Update("Password", string(hashed)).Error; err != nil {
		return err
	}
	// stale cached credentials must not outlive the change
	return config.RemoveRedisKey("User:" + user.Username)
}

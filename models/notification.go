package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"gorm.io/gorm"
)

// Notification is a user-scoped message. Rows older than 7 days drop out of
// the list query; they are not deleted.
type Notification struct {
	ID        int              `gorm:"primary_key" json:"id"`
	UserId    string           `gorm:"index;size:36;not null" json:"user_id"`
	Message   string           `gorm:"size:255;not null" json:"message"`
	Kind      NotificationKind `gorm:"type:enum('LOW_STOCK','HARVEST_COMPLETE','GENERAL');default:'GENERAL'" json:"kind"`
	Link      string           `gorm:"size:255" json:"link"`
	Read      *bool            `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

const notificationWindowDays = 7

// CreateNotificationTx writes the notification inside the caller's
// transaction so it commits or rolls back with the triggering mutation.
func CreateNotificationTx(tx *gorm.DB, userId string, kind NotificationKind, message string, link string) error {
	notification := Notification{
		UserId:  userId,
		Message: message,
		Kind:    kind,
		Link:    link,
		Read:    utils.NewFalse(),
	}
	return tx.Create(&notification).Error
}

func GetNotifications(ctx context.Context) ([]*Notification, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -notificationWindowDays)
	var notifications []*Notification
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userId, cutoff).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func MarkNotificationRead(ctx context.Context, id int) (*Notification, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	notification, err := utils.FetchModel[Notification](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&notification).Update("Read", true).Error; err != nil {
		return nil, err
	}
	notification.Read = utils.NewTrue()
	return notification, nil
}

func MarkAllNotificationsRead(ctx context.Context) error {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND `read` = ?", userId, false).
		Update("Read", true).Error
}

package iot

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

// getNotification returns nil without error when nothing was alerted.
func (i *IOT) getNotification(key string) (*models.NotificationRecord, error) {
	var record models.NotificationRecord
	err := i.Db.Conn.First(&record, "notify_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (i *IOT) recordNotification(key string, deviceID string, at time.Time) error {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTNotify)

	record := models.NotificationRecord{
		Key:        key,
		DeviceID:   deviceID,
		NotifiedAt: at,
	}
	err := i.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "notify_key"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err == nil {
		logger.Info("Notification recorded", zap.Reflect("record", record))
	}
	return err
}

func (i *IOT) clearNotification(key string) error {
	result := i.Db.Conn.Where("notify_key = ?", key).Delete(&models.NotificationRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTNotify).
			Info("Notification cleared", zap.String("key", key))
	}
	return nil
}

type IAlertImpl struct {
	iot *IOT
}

func (ia *IAlertImpl) GetNotification(key string) (*models.NotificationRecord, error) {
	return ia.iot.getNotification(key)
}

func (ia *IAlertImpl) RecordNotification(key string, deviceID string, at time.Time) error {
	return ia.iot.recordNotification(key, deviceID, at)
}

func (ia *IAlertImpl) ClearNotification(key string) error {
	return ia.iot.clearNotification(key)
}

func (i *IOT) GetIAlert() IAlert {
	return &IAlertImpl{iot: i}
}

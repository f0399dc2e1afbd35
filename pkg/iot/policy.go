package iot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

func validatePolicy(p *models.Policy) error {
	if math.IsNaN(p.MinPrice) || math.IsNaN(p.MaxPrice) {
		return fmt.Errorf("%w: prices must be numbers", common.ErrValidation)
	}
	if p.MaxPrice < 0 {
		return fmt.Errorf("%w: maxPrice must be >= 0", common.ErrValidation)
	}
	if p.NumCheapest < 0 {
		return fmt.Errorf("%w: numCheapest must be >= 0", common.ErrValidation)
	}
	if !p.TimeFrame.Valid() {
		return fmt.Errorf("%w: timeFrame must be one of 15min, 30min, 1hour", common.ErrValidation)
	}
	if !p.ManualState.Valid() {
		return fmt.Errorf("%w: manualState must be on, off or null", common.ErrValidation)
	}
	if len(p.FallbackHours) != 0 && len(p.FallbackHours) != models.HoursPerDay {
		return fmt.Errorf("%w: fallbackHours must have %d entries", common.ErrValidation, models.HoursPerDay)
	}
	return nil
}

func (i *IOT) getPolicy(deviceID string) (*models.Policy, error) {
	if _, err := i.getDevice(deviceID); err != nil {
		return nil, err
	}

	var policy models.Policy
	err := i.Db.Conn.First(&policy, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		policy = models.DefaultPolicy(deviceID)
		return &policy, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (i *IOT) upsertPolicy(deviceID string, input *models.Policy) (*models.Policy, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTPolicy)

	policy := *input
	policy.DeviceID = deviceID
	if policy.TimeFrame == "" {
		policy.TimeFrame = models.TimeFrame1Hour
	}
	if err := validatePolicy(&policy); err != nil {
		return nil, err
	}
	if _, err := i.getDevice(deviceID); err != nil {
		return nil, err
	}
	policy.UpdatedAt = i.now()

	logger.Info("Received policy for device", zap.Reflect("policy", policy))

	err := i.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		UpdateAll: true,
	}).Create(&policy).Error
	if err != nil {
		return nil, err
	}

	logger.Info("Upserted policy for device", zap.Reflect("policy", policy))
	return &policy, nil
}

// savePolicy persists the policy and nudges the device in the background so
// it does not wait for its next pull.
func (i *IOT) savePolicy(deviceID string, input *models.Policy) (*models.Policy, error) {
	policy, err := i.upsertPolicy(deviceID, input)
	if err != nil {
		return nil, err
	}
	i.pushAsync(deviceID)
	return policy, nil
}

func (i *IOT) pushAsync(deviceID string) {
	if i.Push == nil {
		return
	}
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTPush)

	i.pushWorkers.Add(1)
	go func() {
		defer i.pushWorkers.Done()
		if err := i.Push.NotifyDevice(context.Background(), deviceID); err != nil {
			logger.Info("Push notify after policy save not delivered",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}()
}

type IPolicyImpl struct {
	iot *IOT
}

func (ip *IPolicyImpl) GetPolicy(deviceID string) (*models.Policy, error) {
	return ip.iot.getPolicy(deviceID)
}

func (ip *IPolicyImpl) SavePolicy(deviceID string, input *models.Policy) (*models.Policy, error) {
	return ip.iot.savePolicy(deviceID, input)
}

func (i *IOT) GetIPolicy() IPolicy {
	return &IPolicyImpl{iot: i}
}

package iot

import (
	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
	"liyu1981.xyz/relay-sync-service/pkg/schedule"
)

// stamp returns the build time in milliseconds, bumped so that two builds
// never share a version.
func (i *IOT) stamp(ms int64) int64 {
	for {
		last := i.lastStamp.Load()
		next := max(ms, last+1)
		if i.lastStamp.CompareAndSwap(last, next) {
			return next
		}
	}
}

func scheduleFor(prices []float64, policy models.Policy) []bool {
	if policy.ManualOverride {
		switch policy.ManualState {
		case models.ManualStateOn:
			return schedule.Uniform(true)
		case models.ManualStateOff:
			return schedule.Uniform(false)
		}
	}
	return schedule.Compile(prices, policy)
}

// buildSnapshot is rebuilt on every pull, it reflects the latest saved policy
// and price array.
func (i *IOT) buildSnapshot(deviceID string) (*models.Snapshot, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTSnapshot)

	policy, err := i.getPolicy(deviceID)
	if err != nil {
		return nil, err
	}

	now := i.now().UTC()
	prices := i.Prices.Day(now)

	snapshot := &models.Snapshot{
		DeviceID:    deviceID,
		Policy:      *policy,
		Schedule:    scheduleFor(prices, *policy),
		Prices:      prices,
		ServerSlot:  schedule.SlotOf(now),
		ServerTime:  now.UnixMilli(),
		LastUpdated: i.stamp(now.UnixMilli()),
	}

	logger.Debug("Built snapshot",
		zap.String("device_id", deviceID),
		zap.Int("server_slot", snapshot.ServerSlot),
		zap.Int64("last_updated", snapshot.LastUpdated),
		zap.Bool("manual_override", policy.ManualOverride))

	return snapshot, nil
}

type ISnapshotImpl struct {
	iot *IOT
}

func (is *ISnapshotImpl) BuildSnapshot(deviceID string) (*models.Snapshot, error) {
	return is.iot.buildSnapshot(deviceID)
}

func (i *IOT) GetISnapshot() ISnapshot {
	return &ISnapshotImpl{iot: i}
}

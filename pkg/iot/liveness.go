package iot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

// pollDevice asks the device directly for its switch state. A reachable
// answer marks the device online and re-arms its offline alert.
func (i *IOT) pollDevice(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTLiveness)

	device, err := i.getDevice(deviceID)
	if err != nil {
		return nil, err
	}
	if i.DeviceClient == nil {
		return nil, fmt.Errorf("device client not available")
	}

	callCtx, cancel := context.WithTimeout(ctx, i.Opts.PollTimeout)
	live, err := i.DeviceClient.GetStatus(callCtx, device.Address)
	cancel()

	now := i.now()
	if err == nil && !live.Reachable {
		err = fmt.Errorf("device %s reported unreachable", deviceID)
	}
	if err != nil {
		status := i.Status.Update(deviceID, func(st *models.DeviceStatus) {
			st.PollReachable = false
			st.LastPoll = now
			st.Error = err.Error()
		})
		logger.Debug("Status poll failed", zap.String("device_id", deviceID), zap.Error(err))
		return &status, err
	}

	status := i.Status.Update(deviceID, func(st *models.DeviceStatus) {
		st.PollReachable = true
		st.Online = true
		st.SwitchOn = boolPtr(live.Output)
		st.LastPoll = now
		st.Error = ""
		st.LastNotified = time.Time{}
	})
	if err := i.Alert.ClearNotification(models.DeviceNotificationKey(deviceID)); err != nil {
		logger.Warn("Failed to clear offline notification", zap.String("device_id", deviceID), zap.Error(err))
	}
	return &status, nil
}

// lastSignal is the reference point for staleness: the in-memory heartbeat,
// the persisted one after a restart, or the registration time.
func lastSignal(device models.Device, status models.DeviceStatus) time.Time {
	if !status.LastHeartbeat.IsZero() {
		return status.LastHeartbeat
	}
	if device.LastHeartbeatAt != nil {
		return *device.LastHeartbeatAt
	}
	return device.CreatedAt
}

// IsStale is true when the heartbeat is too old and the last direct poll
// did not reach the device.
func IsStale(device models.Device, status models.DeviceStatus, now time.Time, threshold time.Duration) bool {
	return now.Sub(lastSignal(device, status)) > threshold && !status.PollReachable
}

func (i *IOT) checkDevice(ctx context.Context, device models.Device) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTLiveness)

	_, _ = i.pollDevice(ctx, device.ID)

	status, _ := i.Status.Get(device.ID)
	now := i.now()

	if !IsStale(device, status, now, i.Opts.HeartbeatStale) {
		if !status.Online {
			i.Status.Update(device.ID, func(st *models.DeviceStatus) { st.Online = true })
		}
		return
	}

	i.Status.Update(device.ID, func(st *models.DeviceStatus) { st.Online = false })

	since := lastSignal(device, status)
	key := models.DeviceNotificationKey(device.ID)
	record, err := i.Alert.GetNotification(key)
	if err != nil {
		logger.Error("Failed to read notification record", zap.String("device_id", device.ID), zap.Error(err))
		return
	}
	if record != nil && !record.NotifiedAt.Before(since) {
		return
	}

	name := device.Name
	if name == "" {
		name = device.ID
	}
	message := fmt.Sprintf("Relay %s (%s) is offline, last heartbeat %s",
		name, device.Address, since.UTC().Format(time.RFC3339))
	if !i.alert(ctx, key, device.ID, message, now) {
		return
	}
	i.Status.Update(device.ID, func(st *models.DeviceStatus) { st.LastNotified = now })
}

// alert sends the message and records it. Undelivered alerts are not
// recorded and are tried again on the next sweep.
func (i *IOT) alert(ctx context.Context, key string, deviceID string, message string, at time.Time) bool {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTNotify)

	if i.Notifier == nil {
		logger.Warn("No notifier configured, alert dropped", zap.String("message", message))
		return false
	}
	if err := i.Notifier.Notify(ctx, message); err != nil {
		logger.Error("Failed to deliver alert", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := i.Alert.RecordNotification(key, deviceID, at); err != nil {
		logger.Error("Failed to record alert", zap.String("key", key), zap.Error(err))
	}
	logger.Info("Alert sent", zap.String("key", key), zap.String("message", message))
	return true
}

// sweep checks every device concurrently. Each check is bounded by the poll
// timeout, a panic in one device check is logged and contained.
func (i *IOT) sweep(ctx context.Context) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTLiveness)

	devices, err := i.listDevices()
	if err != nil {
		logger.Error("Failed to list devices for liveness sweep", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, device := range devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Liveness check panicked", zap.String("device_id", device.ID), zap.Any("panic", r))
				}
			}()
			i.checkDevice(ctx, device)
		}()
	}
	wg.Wait()
}

// checkCoordinatorHealth alerts once when the price feed has gone stale and
// re-arms when fresh prices arrive.
func (i *IOT) checkCoordinatorHealth(ctx context.Context) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTLiveness)

	_, updatedAt := i.Prices.Get()
	since := updatedAt
	if since.IsZero() {
		since = i.startedAt
	}
	now := i.now()
	key := models.CoordinatorNotificationKey

	record, err := i.Alert.GetNotification(key)
	if err != nil {
		logger.Error("Failed to read coordinator notification record", zap.Error(err))
		return
	}

	if now.Sub(since) <= i.Opts.PriceStale {
		if record != nil {
			if err := i.Alert.ClearNotification(key); err != nil {
				logger.Warn("Failed to clear coordinator notification", zap.Error(err))
			}
		}
		return
	}

	if record != nil && !record.NotifiedAt.Before(since) {
		return
	}

	message := fmt.Sprintf("Price data is stale, last refresh %s", since.UTC().Format(time.RFC3339))
	if updatedAt.IsZero() {
		message = "No price data received since coordinator start"
	}
	i.alert(ctx, key, "", message, now)
}

type ILivenessImpl struct {
	iot *IOT
}

func (il *ILivenessImpl) PollDevice(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	return il.iot.pollDevice(ctx, deviceID)
}

func (il *ILivenessImpl) Sweep(ctx context.Context) {
	il.iot.sweep(ctx)
}

func (il *ILivenessImpl) CheckCoordinatorHealth(ctx context.Context) {
	il.iot.checkCoordinatorHealth(ctx)
}

func (i *IOT) GetILiveness() ILiveness {
	return &ILivenessImpl{iot: i}
}

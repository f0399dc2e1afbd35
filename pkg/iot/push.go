package iot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
)

// WakeCandidates are tried in order until one device endpoint answers.
var WakeCandidates = []string{"/script/sync", "/rpc/Agent.Sync", "/sync"}

type pushCooldown struct {
	mu       sync.Mutex
	delay    time.Duration
	until    time.Time
	failures int
}

func (i *IOT) cooldownFor(deviceID string) *pushCooldown {
	cd, _ := i.cooldowns.LoadOrStore(deviceID, &pushCooldown{})
	return cd.(*pushCooldown)
}

// PushCooldown reports the current backoff of a device and when the next
// push is allowed.
func (i *IOT) PushCooldown(deviceID string) (time.Duration, time.Time) {
	cd := i.cooldownFor(deviceID)
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.delay, cd.until
}

// notifyDevice holds the device cooldown lock for the whole attempt so the
// read-then-write of the backoff is atomic per device.
func (i *IOT) notifyDevice(ctx context.Context, deviceID string) error {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTPush)

	device, err := i.getDevice(deviceID)
	if err != nil {
		return err
	}
	if i.DeviceClient == nil {
		return fmt.Errorf("device client not available")
	}

	cd := i.cooldownFor(deviceID)
	cd.mu.Lock()
	defer cd.mu.Unlock()

	now := i.now()
	if now.Before(cd.until) {
		return fmt.Errorf("%w: %s until %s", common.ErrCooldown, deviceID, cd.until.Format(time.RFC3339))
	}

	var lastErr error
	for _, path := range WakeCandidates {
		callCtx, cancel := context.WithTimeout(ctx, i.Opts.PollTimeout)
		lastErr = i.DeviceClient.Wake(callCtx, device.Address, path)
		cancel()
		if lastErr == nil {
			cd.delay, cd.until, cd.failures = 0, time.Time{}, 0
			logger.Info("Pushed sync request", zap.String("device_id", deviceID), zap.String("endpoint", path))
			return nil
		}
		logger.Debug("Push candidate failed", zap.String("device_id", deviceID),
			zap.String("endpoint", path), zap.Error(lastErr))
	}

	if cd.delay == 0 {
		cd.delay = i.Opts.PushCooldownMin
	} else {
		cd.delay = min(cd.delay*2, i.Opts.PushCooldownMax)
	}
	cd.until = now.Add(cd.delay)
	cd.failures++

	logger.Warn("Push notify failed, backing off",
		zap.String("device_id", deviceID),
		zap.Int("failures", cd.failures),
		zap.Duration("cooldown", cd.delay),
		zap.Error(lastErr))

	return fmt.Errorf("push notify %s: %w", deviceID, lastErr)
}

type IPushImpl struct {
	iot *IOT
}

func (ip *IPushImpl) NotifyDevice(ctx context.Context, deviceID string) error {
	return ip.iot.notifyDevice(ctx, deviceID)
}

func (i *IOT) GetIPush() IPush {
	return &IPushImpl{iot: i}
}

package iot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
)

type LoopOpts struct {
	LivenessInterval  time.Duration
	PushInterval      time.Duration
	ReconcileInterval time.Duration
}

// RunLoops starts the periodic coordinator jobs and returns immediately. A
// zero interval disables its job. All jobs stop with ctx.
func (i *IOT) RunLoops(ctx context.Context, opts LoopOpts) {
	go every(ctx, opts.LivenessInterval, func() {
		i.Liveness.Sweep(ctx)
		i.Liveness.CheckCoordinatorHealth(ctx)
	})
	go every(ctx, opts.PushInterval, func() { i.pushAll(ctx) })
	go every(ctx, opts.ReconcileInterval, func() { i.reconcileAll(ctx) })
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (i *IOT) pushAll(ctx context.Context) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTPush)

	devices, err := i.Device.ListDevices()
	if err != nil {
		logger.Error("Failed to list devices for periodic push", zap.Error(err))
		return
	}
	for _, device := range devices {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Periodic push panicked", zap.String("device_id", device.ID), zap.Any("panic", r))
				}
			}()
			if err := i.Push.NotifyDevice(ctx, device.ID); err != nil && !errors.Is(err, common.ErrCooldown) {
				logger.Debug("Periodic push not delivered", zap.String("device_id", device.ID), zap.Error(err))
			}
		}()
	}
}

func (i *IOT) reconcileAll(ctx context.Context) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTReconcile)

	devices, err := i.Device.ListDevices()
	if err != nil {
		logger.Error("Failed to list devices for reconciliation", zap.Error(err))
		return
	}
	for _, device := range devices {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Reconciliation panicked", zap.String("device_id", device.ID), zap.Any("panic", r))
				}
			}()
			if _, err := i.Control.Reconcile(ctx, device.ID); err != nil {
				logger.Warn("Reconciliation failed", zap.String("device_id", device.ID), zap.Error(err))
			}
		}()
	}
}

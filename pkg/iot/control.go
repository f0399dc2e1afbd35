package iot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
	"liyu1981.xyz/relay-sync-service/pkg/schedule"
)

type controlTier struct {
	name string
	call func(ctx context.Context, address string, action models.ControlAction) error
}

func (i *IOT) controlTiers() []controlTier {
	return []controlTier{
		{name: "script", call: i.DeviceClient.ScriptControl},
		{name: "rpc", call: i.DeviceClient.RPCSetSwitch},
		{name: "legacy", call: i.DeviceClient.LegacyRelay},
	}
}

// sendPhysical walks the control tiers until one succeeds. The action is in
// physical relay terms.
func (i *IOT) sendPhysical(ctx context.Context, device *models.Device, action models.ControlAction) (string, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTControl)

	if i.DeviceClient == nil {
		return "", fmt.Errorf("%w: device client not available", common.ErrPhysicalControl)
	}

	var lastTier string
	var lastErr error
	for _, tier := range i.controlTiers() {
		callCtx, cancel := context.WithTimeout(ctx, i.Opts.PollTimeout)
		err := tier.call(callCtx, device.Address, action)
		cancel()
		if err == nil {
			logger.Info("Control command delivered",
				zap.String("device_id", device.ID),
				zap.String("tier", tier.name),
				zap.String("action", string(action)))
			return tier.name, nil
		}
		logger.Warn("Control tier failed",
			zap.String("device_id", device.ID),
			zap.String("tier", tier.name),
			zap.Error(err))
		lastTier, lastErr = tier.name, err
	}
	return "", fmt.Errorf("%w: %s tier: %w", common.ErrPhysicalControl, lastTier, lastErr)
}

// manualControl applies an operator command given in logical terms and keeps
// the saved policy in step so the next pull agrees with it.
func (i *IOT) manualControl(ctx context.Context, deviceID string, action models.ControlAction) error {
	if action != models.ControlOn && action != models.ControlOff && action != models.ControlClear {
		return fmt.Errorf("%w: unknown action %q", common.ErrValidation, action)
	}

	device, err := i.getDevice(deviceID)
	if err != nil {
		return err
	}
	policy, err := i.getPolicy(deviceID)
	if err != nil {
		return err
	}

	wire := action
	if action != models.ControlClear {
		wire = models.ControlFor(common.Physical(action == models.ControlOn, policy.ReversedControl))
	}

	if _, err := i.sendPhysical(ctx, device, wire); err != nil {
		i.Status.Update(deviceID, func(st *models.DeviceStatus) { st.Error = err.Error() })
		return err
	}

	switch action {
	case models.ControlClear:
		policy.ManualOverride = false
		policy.ManualState = models.ManualStateNone
	default:
		policy.ManualOverride = true
		policy.ManualState = models.ManualState(action)
		i.Status.Update(deviceID, func(st *models.DeviceStatus) {
			st.SwitchOn = boolPtr(wire == models.ControlOn)
			st.Error = ""
		})
	}

	if _, err := i.upsertPolicy(deviceID, policy); err != nil {
		return fmt.Errorf("command delivered but policy not saved: %w", err)
	}
	return nil
}

// reconcile issues at most one corrective command when the relay differs
// from what the schedule wants for the current slot.
func (i *IOT) reconcile(ctx context.Context, deviceID string) (*models.ReconcileResult, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTReconcile)

	device, err := i.getDevice(deviceID)
	if err != nil {
		return nil, err
	}
	policy, err := i.getPolicy(deviceID)
	if err != nil {
		return nil, err
	}

	now := i.now().UTC()
	slot := schedule.SlotOf(now)
	result := &models.ReconcileResult{DeviceID: deviceID, Slot: slot}

	if policy.ManualOverride {
		result.Outcome = models.ReconcileSkipped
		result.Reason = "manual override active"
		return result, nil
	}

	prices := i.Prices.Day(now)
	if !schedule.HasUsablePrices(prices) {
		result.Outcome = models.ReconcileSkipped
		result.Reason = "no usable price data"
		return result, nil
	}

	desired := common.Physical(schedule.Compile(prices, *policy)[slot], policy.ReversedControl)
	result.Desired = desired

	status, ok := i.Status.Get(deviceID)
	if !ok || status.SwitchOn == nil {
		polled, err := i.pollDevice(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		status = *polled
	}
	result.Actual = boolPtr(*status.SwitchOn)

	if *status.SwitchOn == desired {
		result.Outcome = models.ReconcileInSync
		return result, nil
	}

	tier, err := i.sendPhysical(ctx, device, models.ControlFor(desired))
	if err != nil {
		i.Status.Update(deviceID, func(st *models.DeviceStatus) { st.Error = err.Error() })
		return nil, err
	}
	i.Status.Update(deviceID, func(st *models.DeviceStatus) { st.SwitchOn = boolPtr(desired) })

	result.Outcome = models.ReconcileCorrected
	result.Tier = tier
	logger.Info("Reconciled relay state", zap.Reflect("result", result))
	return result, nil
}

type IControlImpl struct {
	iot *IOT
}

func (ic *IControlImpl) ManualControl(ctx context.Context, deviceID string, action models.ControlAction) error {
	return ic.iot.manualControl(ctx, deviceID, action)
}

func (ic *IControlImpl) Reconcile(ctx context.Context, deviceID string) (*models.ReconcileResult, error) {
	return ic.iot.reconcile(ctx, deviceID)
}

func (i *IOT) GetIControl() IControl {
	return &IControlImpl{iot: i}
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
	"liyu1981.xyz/relay-sync-service/pkg/schedule"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateSyncing       State = "syncing"
	StateSynced        State = "synced"
	StateDegraded      State = "degraded"
)

const slotDuration = 15 * time.Minute

// Status is the agent's view of itself, served on the local surface.
type Status struct {
	DeviceID     string   `json:"deviceId"`
	State        State    `json:"state"`
	Applied      int64    `json:"appliedVersion"`
	Reversed     bool     `json:"reversedControl"`
	LastPrice    float64  `json:"lastPrice"`
	LastSyncErr  string   `json:"lastSyncError,omitempty"`
	Hold         *bool    `json:"hold,omitempty"`
	LastDecision Decision `json:"lastDecision"`
}

type Agent struct {
	cfg    *Config
	coord  Coordinator
	relay  Relay
	uptime Uptime
	clock  Clock

	mu          sync.Mutex
	state       State
	applied     *models.Snapshot
	appliedAt   time.Duration
	slotBase    int
	slotOffset  time.Duration
	policy      *models.Policy
	reversed    bool
	lastPrice   float64
	synced      bool
	lastSyncAt  time.Duration
	lastSyncErr error
	serverTime  time.Time
	serverAt    time.Duration
	hold        *bool
	holdStamp   time.Time
	decision    Decision

	applyMu sync.Mutex
	syncNow chan struct{}
}

func New(cfg *Config, coord Coordinator, relay Relay, uptime Uptime, clock Clock) *Agent {
	return &Agent{
		cfg:      cfg,
		coord:    coord,
		relay:    relay,
		uptime:   uptime,
		clock:    clock,
		state:    StateUninitialized,
		reversed: cfg.ReversedControl,
		syncNow:  make(chan struct{}, 1),
	}
}

func (a *Agent) syncLogger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameRelayAgent, common.LoggerCategoryAgentSync).
		With(zap.String("device_id", a.cfg.DeviceID))
}

func (a *Agent) applyLogger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameRelayAgent, common.LoggerCategoryAgentApply).
		With(zap.String("device_id", a.cfg.DeviceID))
}

// Sync pulls one snapshot, retrying transport and 5xx failures, then applies
// the rules with whatever is usable afterwards.
func (a *Agent) Sync(ctx context.Context) error {
	a.mu.Lock()
	a.state = StateSyncing
	a.mu.Unlock()

	var snapshot *models.Snapshot
	err := common.Retry(ctx, common.RetryOpts{
		Attempts:  MaxSyncAttempts,
		BaseDelay: a.cfg.RetryBaseDelay,
	}, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
		s, err := a.coord.PullSnapshot(callCtx)
		if err != nil {
			a.syncLogger().Debug("Pull attempt failed", zap.Error(err))
			return err
		}
		snapshot = s
		return nil
	})

	a.mu.Lock()
	if err == nil {
		err = a.acceptLocked(snapshot)
	}
	a.lastSyncErr = err
	if a.usableLocked() {
		a.state = StateSynced
	} else {
		a.state = StateDegraded
	}
	state := a.state
	a.mu.Unlock()

	switch {
	case err == nil:
		a.syncLogger().Info("Adopted snapshot", zap.Int64("last_updated", snapshot.LastUpdated))
	case errors.Is(err, common.ErrStaleSnapshot):
		a.syncLogger().Debug("Ignored snapshot", zap.Error(err))
	default:
		a.syncLogger().Warn("Sync abandoned for this cycle", zap.String("state", string(state)), zap.Error(err))
	}

	if _, applyErr := a.Apply(ctx); applyErr != nil {
		a.applyLogger().Error("Rule application failed", zap.Error(applyErr))
	}
	return err
}

// acceptLocked validates and adopts a pulled snapshot. reversedControl and
// the price of the current slot are taken even from a snapshot that is not
// newer than the applied one.
func (a *Agent) acceptLocked(s *models.Snapshot) error {
	if err := ValidateSnapshot(s); err != nil {
		return err
	}

	now := a.uptime.Uptime()
	a.synced = true
	a.lastSyncAt = now
	if s.ServerTime > 0 {
		a.serverTime = time.UnixMilli(s.ServerTime)
		a.serverAt = now
	}

	slot := schedule.ResolveSlot(s.ServerSlot, s.ServerTime, s.Policy.TimeFrame)
	offset := time.Duration(0)
	if s.ServerTime > 0 {
		offset = time.Duration(s.ServerTime%slotDuration.Milliseconds()) * time.Millisecond
	}

	a.reversed = s.Policy.ReversedControl
	a.lastPrice = s.Prices[slot]

	if a.applied != nil && s.LastUpdated <= a.applied.LastUpdated {
		return fmt.Errorf("%w: %d is not after %d", common.ErrStaleSnapshot, s.LastUpdated, a.applied.LastUpdated)
	}

	a.applied = s
	a.appliedAt = now
	a.slotBase = slot
	a.slotOffset = offset
	policy := s.Policy
	a.policy = &policy

	if a.hold != nil && !policy.UpdatedAt.Equal(a.holdStamp) {
		a.hold = nil
	}
	return nil
}

// usableLocked is true while the applied snapshot is young enough to
// schedule from.
func (a *Agent) usableLocked() bool {
	return a.applied != nil && a.uptime.Uptime()-a.appliedAt <= a.cfg.SnapshotMaxAge
}

func (a *Agent) slotLocked() (int, bool) {
	if a.applied == nil {
		return 0, false
	}
	elapsed := a.uptime.Uptime() - a.appliedAt
	return (a.slotBase + int((a.slotOffset+elapsed)/slotDuration)) % models.SlotsPerDay, true
}

// hourLocked prefers the coordinator's clock advanced by uptime over the
// local one, which may never have been set.
func (a *Agent) hourLocked() (int, bool) {
	if !a.serverTime.IsZero() {
		now := a.serverTime.Add(a.uptime.Uptime() - a.serverAt)
		return now.In(a.cfg.Location()).Hour(), true
	}
	if a.clock != nil {
		if now, ok := a.clock.Now(); ok {
			return now.In(a.cfg.Location()).Hour(), true
		}
	}
	return 0, false
}

func (a *Agent) decisionInputLocked() decisionInput {
	in := decisionInput{
		hold:     a.hold,
		policy:   a.policy,
		reversed: a.reversed,
		fallback: a.cfg.FallbackHours,
	}
	if a.policy != nil && len(a.policy.FallbackHours) == models.HoursPerDay {
		in.fallback = a.policy.FallbackHours
	}
	if a.usableLocked() {
		in.snapshot = a.applied
		in.slot, in.slotOK = a.slotLocked()
	}
	in.hour, in.hourOK = a.hourLocked()
	return in
}

// Apply runs the decision rules once and drives the relay.
func (a *Agent) Apply(ctx context.Context) (Decision, error) {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	a.mu.Lock()
	d := decide(a.decisionInputLocked())
	if d.Source == SourceSchedule {
		a.lastPrice = d.Price
	}
	a.decision = d
	a.mu.Unlock()

	if d.Hold {
		a.applyLogger().Debug("Relay state frozen by manual override")
		return d, nil
	}
	if err := a.relay.Set(d.Physical); err != nil {
		return d, fmt.Errorf("setting relay: %w", err)
	}
	a.applyLogger().Debug("Applied relay state", zap.Reflect("decision", d))
	return d, nil
}

func (a *Agent) heartbeatPayload() *models.Heartbeat {
	a.mu.Lock()
	defer a.mu.Unlock()

	hb := &models.Heartbeat{
		Uptime:    a.uptime.Uptime().Seconds(),
		LastPrice: a.lastPrice,
		SwitchOn:  a.decision.Physical,
	}
	if on, err := a.relay.State(); err == nil {
		hb.SwitchOn = on
	}
	if a.synced {
		hb.LastSync = a.lastSyncAt.Seconds()
	}
	if a.applied != nil {
		hb.ConfigVersion = a.applied.LastUpdated
	}
	return hb
}

// Heartbeat reports to the coordinator, giving up after two attempts.
func (a *Agent) Heartbeat(ctx context.Context) error {
	hb := a.heartbeatPayload()
	err := common.Retry(ctx, common.RetryOpts{
		Attempts:  MaxHeartbeatAttempts,
		BaseDelay: a.cfg.RetryBaseDelay,
	}, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
		return a.coord.SendHeartbeat(callCtx, hb)
	})
	if err != nil {
		a.syncLogger().Warn("Heartbeat not delivered", zap.Error(err))
	}
	return err
}

// Command applies a direct physical command from the local surface. It holds
// until cleared or until a snapshot with a changed policy is adopted.
func (a *Agent) Command(ctx context.Context, action models.ControlAction) error {
	a.mu.Lock()
	switch action {
	case models.ControlOn, models.ControlOff:
		on := action == models.ControlOn
		a.hold = &on
		a.holdStamp = time.Time{}
		if a.policy != nil {
			a.holdStamp = a.policy.UpdatedAt
		}
	case models.ControlClear:
		a.hold = nil
	default:
		a.mu.Unlock()
		return fmt.Errorf("%w: unknown action %q", common.ErrValidation, action)
	}
	a.mu.Unlock()

	a.applyLogger().Info("Direct command", zap.String("action", string(action)))
	a.RequestSync()
	_, err := a.Apply(ctx)
	return err
}

// RequestSync asks the sync loop for an immediate pull. It never blocks.
func (a *Agent) RequestSync() {
	select {
	case a.syncNow <- struct{}{}:
	default:
	}
}

func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Status{
		DeviceID:     a.cfg.DeviceID,
		State:        a.state,
		Reversed:     a.reversed,
		LastPrice:    a.lastPrice,
		LastDecision: a.decision,
	}
	if a.applied != nil {
		st.Applied = a.applied.LastUpdated
	}
	if a.lastSyncErr != nil {
		st.LastSyncErr = a.lastSyncErr.Error()
	}
	if a.hold != nil {
		v := *a.hold
		st.Hold = &v
	}
	return st
}

func (a *Agent) RelayState() (bool, error) {
	return a.relay.State()
}

// Run syncs once and then keeps the sync, apply and heartbeat cadences on
// their own tickers until ctx ends.
func (a *Agent) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		_ = a.Sync(ctx)
		ticker := time.NewTicker(a.cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-a.syncNow:
			}
			_ = a.Sync(ctx)
		}
	}()

	go func() {
		defer wg.Done()
		runEvery(ctx, a.cfg.ApplyInterval, func() {
			if _, err := a.Apply(ctx); err != nil {
				a.applyLogger().Error("Rule application failed", zap.Error(err))
			}
		})
	}()

	go func() {
		defer wg.Done()
		runEvery(ctx, a.cfg.HeartbeatInterval, func() { _ = a.Heartbeat(ctx) })
	}()

	wg.Wait()
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
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

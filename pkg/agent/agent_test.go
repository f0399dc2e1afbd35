package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

func TestValidateSnapshot(t *testing.T) {
	assert.NoError(t, ValidateSnapshot(snapshotAt(1)))

	short := snapshotAt(1)
	short.Schedule = short.Schedule[:95]
	assert.True(t, errors.Is(ValidateSnapshot(short), common.ErrValidation))

	fewPrices := snapshotAt(1)
	fewPrices.Prices = fewPrices.Prices[:90]
	assert.True(t, errors.Is(ValidateSnapshot(fewPrices), common.ErrValidation))

	negative := snapshotAt(1)
	negative.Prices[7] = -0.01
	assert.True(t, errors.Is(ValidateSnapshot(negative), common.ErrValidation))

	mostlyZero := snapshotAt(1)
	for i := 0; i < 49; i++ {
		mostlyZero.Prices[i] = 0
	}
	assert.True(t, errors.Is(ValidateSnapshot(mostlyZero), common.ErrValidation))

	halfZero := snapshotAt(1)
	for i := 0; i < 48; i++ {
		halfZero.Prices[i] = 0
	}
	assert.NoError(t, ValidateSnapshot(halfZero))

	assert.Error(t, ValidateSnapshot(nil))
}

func TestDecide(t *testing.T) {
	on := true
	snap := snapshotAt(1, 41)
	fallback := make([]bool, models.HoursPerDay)
	fallback[10] = true

	manual := func(state models.ManualState) *models.Policy {
		p := models.DefaultPolicy("relay-1")
		p.ManualOverride = true
		p.ManualState = state
		return &p
	}

	cases := []struct {
		name string
		in   decisionInput
		want Decision
	}{
		{"local hold wins", decisionInput{hold: &on, policy: manual(models.ManualStateOff)}, Decision{Source: SourceLocal, Physical: true}},
		{"manual on", decisionInput{policy: manual(models.ManualStateOn), snapshot: snap, slotOK: true}, Decision{Source: SourceManual, Physical: true}},
		{"manual on reversed", decisionInput{policy: manual(models.ManualStateOn), reversed: true}, Decision{Source: SourceManual, Physical: false}},
		{"manual off", decisionInput{policy: manual(models.ManualStateOff)}, Decision{Source: SourceManual, Physical: false}},
		{"manual null freezes", decisionInput{policy: manual(models.ManualStateNone), snapshot: snap, slot: 41, slotOK: true}, Decision{Source: SourceFrozen, Hold: true}},
		{"schedule", decisionInput{snapshot: snap, slot: 41, slotOK: true}, Decision{Source: SourceSchedule, Physical: true, Slot: 41, Price: snap.Prices[41]}},
		{"schedule reversed", decisionInput{snapshot: snap, slot: 40, slotOK: true, reversed: true}, Decision{Source: SourceSchedule, Physical: true, Slot: 40, Price: snap.Prices[40]}},
		{"fallback hour", decisionInput{hour: 10, hourOK: true, fallback: fallback}, Decision{Source: SourceFallback, Physical: true}},
		{"fallback without hour", decisionInput{fallback: fallback}, Decision{Source: SourceDefault, Physical: false}},
		{"default off", decisionInput{hour: 10, hourOK: true}, Decision{Source: SourceDefault, Physical: false}},
		{"default off reversed", decisionInput{reversed: true}, Decision{Source: SourceDefault, Physical: true}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, decide(c.in))
		})
	}
}

func TestSync_AdoptsAndApplies(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, _ := newTestAgent(coord, relay, nil)
	assert.Equal(t, StateUninitialized, a.Status().State)

	snap := snapshotAt(1000, 41)
	coord.queue(pullResult{snapshot: snap})
	require.NoError(t, a.Sync(context.Background()))

	st := a.Status()
	assert.Equal(t, StateSynced, st.State)
	assert.Equal(t, int64(1000), st.Applied)
	assert.Equal(t, snap.Prices[41], st.LastPrice)
	assert.Equal(t, SourceSchedule, st.LastDecision.Source)

	on, _ := relay.State()
	assert.True(t, on)
}

func TestSync_FreshnessGate(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, _ := newTestAgent(coord, relay, nil)

	coord.queue(pullResult{snapshot: snapshotAt(1000, 41)})
	require.NoError(t, a.Sync(context.Background()))

	// same version, different schedule and wiring polarity
	same := snapshotAt(1000)
	same.Policy.ReversedControl = true
	same.Prices[41] = 0.9
	coord.queue(pullResult{snapshot: same})
	err := a.Sync(context.Background())
	assert.True(t, errors.Is(err, common.ErrStaleSnapshot))

	st := a.Status()
	assert.Equal(t, int64(1000), st.Applied)
	assert.True(t, st.Reversed)
	// schedule of version 1000 still applies, now inverted
	on, _ := relay.State()
	assert.False(t, on)

	older := snapshotAt(500)
	coord.queue(pullResult{snapshot: older})
	err = a.Sync(context.Background())
	assert.True(t, errors.Is(err, common.ErrStaleSnapshot))
	assert.Equal(t, int64(1000), a.Status().Applied)

	coord.queue(pullResult{snapshot: snapshotAt(1001)})
	require.NoError(t, a.Sync(context.Background()))
	assert.Equal(t, int64(1001), a.Status().Applied)
}

func TestSync_ThreeFailuresUseFallbackHours(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, _ := newTestAgent(coord, relay, fakeClock{now: testServerTime, ok: true})
	a.cfg.FallbackHours = make([]bool, models.HoursPerDay)
	a.cfg.FallbackHours[10] = true

	coord.queue(
		pullResult{err: errTransient},
		pullResult{err: errTransient},
		pullResult{err: errTransient},
		pullResult{snapshot: snapshotAt(1)},
	)
	err := a.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, MaxSyncAttempts, coord.pullCalls)

	st := a.Status()
	assert.Equal(t, StateDegraded, st.State)
	assert.Equal(t, SourceFallback, st.LastDecision.Source)
	on, _ := relay.State()
	assert.True(t, on)
}

func TestSync_FailuresWithoutFallbackTurnOff(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(true)
	a, _ := newTestAgent(coord, relay, fakeClock{})

	require.Error(t, a.Sync(context.Background()))

	assert.Equal(t, SourceDefault, a.Status().LastDecision.Source)
	on, _ := relay.State()
	assert.False(t, on)
}

func TestSync_PermanentErrorNotRetried(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	a, _ := newTestAgent(coord, NewMemoryRelay(false), nil)

	coord.queue(pullResult{err: common.Permanent(errors.New("coordinator: 404 Not Found"))})
	require.Error(t, a.Sync(context.Background()))
	assert.Equal(t, 1, coord.pullCalls)
}

func TestSync_InvalidSnapshotKeepsPrevious(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, _ := newTestAgent(coord, relay, nil)

	coord.queue(pullResult{snapshot: snapshotAt(1000, 41)})
	require.NoError(t, a.Sync(context.Background()))

	broken := snapshotAt(2000)
	broken.Prices = make([]float64, models.SlotsPerDay)
	coord.queue(pullResult{snapshot: broken})
	err := a.Sync(context.Background())
	assert.True(t, errors.Is(err, common.ErrValidation))

	st := a.Status()
	assert.Equal(t, int64(1000), st.Applied)
	assert.Equal(t, StateSynced, st.State)
	on, _ := relay.State()
	assert.True(t, on)
}

func TestApply_ManualNullLeavesRelayUntouched(t *testing.T) {
	common.SetTestLoggerNop()

	for _, initial := range []bool{true, false} {
		coord := &fakeCoordinator{}
		relay := NewMemoryRelay(initial)
		a, _ := newTestAgent(coord, relay, nil)

		snap := snapshotAt(1000)
		if !initial {
			snap = snapshotAt(1000, 41)
		}
		snap.Policy.ManualOverride = true
		snap.Policy.ManualState = models.ManualStateNone
		coord.queue(pullResult{snapshot: snap})
		require.NoError(t, a.Sync(context.Background()))

		d, err := a.Apply(context.Background())
		require.NoError(t, err)
		assert.True(t, d.Hold)

		on, _ := relay.State()
		assert.Equal(t, initial, on)
		assert.Zero(t, relay.Switches())
	}
}

func TestApply_ManualOnReversed(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(true)
	a, _ := newTestAgent(coord, relay, nil)

	snap := snapshotAt(1000, 41)
	snap.Policy.ManualOverride = true
	snap.Policy.ManualState = models.ManualStateOn
	snap.Policy.ReversedControl = true
	coord.queue(pullResult{snapshot: snap})
	require.NoError(t, a.Sync(context.Background()))

	on, _ := relay.State()
	assert.False(t, on)
}

func TestApply_SlotFollowsUptime(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, uptime := newTestAgent(coord, relay, fakeClock{now: testServerTime.Add(-5 * time.Hour), ok: true})

	// 10:20 server time is five minutes into slot 41
	coord.queue(pullResult{snapshot: snapshotAt(1000, 42)})
	require.NoError(t, a.Sync(context.Background()))
	on, _ := relay.State()
	assert.False(t, on)

	uptime.Advance(10 * time.Minute)
	d, err := a.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, d.Slot)
	on, _ = relay.State()
	assert.True(t, on)

	uptime.Advance(15 * time.Minute)
	d, _ = a.Apply(context.Background())
	assert.Equal(t, 43, d.Slot)
	on, _ = relay.State()
	assert.False(t, on)
}

func TestApply_SnapshotExpires(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, uptime := newTestAgent(coord, relay, fakeClock{})
	a.cfg.FallbackHours = make([]bool, models.HoursPerDay)
	a.cfg.FallbackHours[11] = true

	all := make([]int, models.SlotsPerDay)
	for i := range all {
		all[i] = i
	}
	coord.queue(pullResult{snapshot: snapshotAt(1000, all...)})
	require.NoError(t, a.Sync(context.Background()))

	uptime.Advance(23 * time.Hour)
	d, _ := a.Apply(context.Background())
	assert.Equal(t, SourceSchedule, d.Source)

	// 25h after adoption, hour taken from server time is 11
	uptime.Advance(2 * time.Hour)
	d, _ = a.Apply(context.Background())
	assert.Equal(t, SourceFallback, d.Source)
	assert.True(t, d.Physical)

	require.Error(t, a.Sync(context.Background()))
	assert.Equal(t, StateDegraded, a.Status().State)
}

func TestCommand_HoldsUntilPolicyChanges(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, _ := newTestAgent(coord, relay, nil)

	coord.queue(pullResult{snapshot: snapshotAt(1000)})
	require.NoError(t, a.Sync(context.Background()))

	require.NoError(t, a.Command(context.Background(), models.ControlOn))
	on, _ := relay.State()
	assert.True(t, on)

	// a pull that raced the command still carries the old policy
	coord.queue(pullResult{snapshot: snapshotAt(1001)})
	require.NoError(t, a.Sync(context.Background()))
	on, _ = relay.State()
	assert.True(t, on)
	assert.NotNil(t, a.Status().Hold)

	acked := snapshotAt(1002)
	acked.Policy.ManualOverride = true
	acked.Policy.ManualState = models.ManualStateOn
	acked.Policy.UpdatedAt = testServerTime
	coord.queue(pullResult{snapshot: acked})
	require.NoError(t, a.Sync(context.Background()))
	assert.Nil(t, a.Status().Hold)
	on, _ = relay.State()
	assert.True(t, on)

	require.NoError(t, a.Command(context.Background(), models.ControlOff))
	require.NoError(t, a.Command(context.Background(), models.ControlClear))
	assert.Nil(t, a.Status().Hold)
	// back to the synced manual on
	on, _ = relay.State()
	assert.True(t, on)

	assert.True(t, errors.Is(a.Command(context.Background(), "toggle"), common.ErrValidation))
}

func TestHeartbeat(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	relay := NewMemoryRelay(false)
	a, uptime := newTestAgent(coord, relay, nil)

	coord.queue(pullResult{snapshot: snapshotAt(1000, 41)})
	require.NoError(t, a.Sync(context.Background()))
	uptime.Advance(90 * time.Second)

	coord.hbErrs = []error{errTransient, nil}
	require.NoError(t, a.Heartbeat(context.Background()))
	assert.Equal(t, 2, coord.hbCalls)

	require.Len(t, coord.heartbeats, 1)
	hb := coord.heartbeats[0]
	assert.Equal(t, (time.Hour + 90*time.Second).Seconds(), hb.Uptime)
	assert.Equal(t, time.Hour.Seconds(), hb.LastSync)
	assert.True(t, hb.SwitchOn)
	assert.Equal(t, int64(1000), hb.ConfigVersion)
	assert.Equal(t, snapshotAt(1).Prices[41], hb.LastPrice)

	coord.hbCalls = 0
	coord.hbErrs = []error{errTransient, errTransient, nil}
	assert.Error(t, a.Heartbeat(context.Background()))
	assert.Equal(t, MaxHeartbeatAttempts, coord.hbCalls)
}

func TestRun_StopsWithContext(t *testing.T) {
	common.SetTestLoggerNop()

	coord := &fakeCoordinator{}
	coord.queue(pullResult{snapshot: snapshotAt(1000, 41)})
	relay := NewMemoryRelay(false)
	a, _ := newTestAgent(coord, relay, nil)
	a.cfg.SyncInterval = 10 * time.Millisecond
	a.cfg.ApplyInterval = 10 * time.Millisecond
	a.cfg.HeartbeatInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return len(coord.heartbeats) > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop")
	}
	assert.Equal(t, int64(1000), a.Status().Applied)
}

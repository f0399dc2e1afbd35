package iot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/relay-sync-service/pkg/common"
	_ "liyu1981.xyz/relay-sync-service/pkg/testing"
)

func TestNotifyDevice_CandidateOrder(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, set := GetMockIOTWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	device := seedDevice(t, iotObj)

	gomock.InOrder(
		set.Client.EXPECT().Wake(gomock.Any(), device.Address, "/script/sync").Return(errors.New("404")),
		set.Client.EXPECT().Wake(gomock.Any(), device.Address, "/rpc/Agent.Sync").Return(nil),
	)

	require.NoError(t, iotObj.Push.NotifyDevice(context.Background(), device.ID))

	delay, until := iotObj.PushCooldown(device.ID)
	assert.Zero(t, delay)
	assert.True(t, until.IsZero())
}

func TestNotifyDevice_CooldownDoublesAndCaps(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, set := GetMockIOTWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()
	iotObj.Opts.PushCooldownMin = 5 * time.Second
	iotObj.Opts.PushCooldownMax = 20 * time.Second

	device := seedDevice(t, iotObj)
	set.Client.EXPECT().Wake(gomock.Any(), device.Address, gomock.Any()).
		Return(errors.New("connection refused")).AnyTimes()

	expected := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 20 * time.Second}
	for _, want := range expected {
		err := iotObj.Push.NotifyDevice(context.Background(), device.ID)
		require.Error(t, err)
		assert.False(t, errors.Is(err, common.ErrCooldown))

		delay, until := iotObj.PushCooldown(device.ID)
		assert.Equal(t, want, delay)
		assert.Equal(t, set.Clock.Now().Add(want), until)

		// inside the window nothing is sent
		err = iotObj.Push.NotifyDevice(context.Background(), device.ID)
		assert.True(t, errors.Is(err, common.ErrCooldown))

		set.Clock.Advance(want)
	}
}

func TestNotifyDevice_SuccessResetsCooldown(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, set := GetMockIOTWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	device := seedDevice(t, iotObj)

	fail := errors.New("timeout")
	gomock.InOrder(
		set.Client.EXPECT().Wake(gomock.Any(), device.Address, gomock.Any()).Return(fail).Times(len(WakeCandidates)),
		set.Client.EXPECT().Wake(gomock.Any(), device.Address, "/script/sync").Return(nil),
	)

	require.Error(t, iotObj.Push.NotifyDevice(context.Background(), device.ID))
	set.Clock.Advance(iotObj.Opts.PushCooldownMin)
	require.NoError(t, iotObj.Push.NotifyDevice(context.Background(), device.ID))

	delay, _ := iotObj.PushCooldown(device.ID)
	assert.Zero(t, delay)
}

func TestNotifyDevice_ConcurrentCallsSerialized(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, set := GetMockIOTWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	device := seedDevice(t, iotObj)

	var inFlight, maxInFlight atomic.Int32
	set.Client.EXPECT().Wake(gomock.Any(), device.Address, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ string) error {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return errors.New("unreachable")
		}).AnyTimes()

	var wg sync.WaitGroup
	var cooldownErrs atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := iotObj.Push.NotifyDevice(context.Background(), device.ID); errors.Is(err, common.ErrCooldown) {
				cooldownErrs.Add(1)
			}
		}()
	}
	wg.Wait()

	// one full attempt, every other caller sees the cooldown it set
	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, int32(7), cooldownErrs.Load())
	delay, _ := iotObj.PushCooldown(device.ID)
	assert.Equal(t, iotObj.Opts.PushCooldownMin, delay)
}

func TestNotifyDevice_UnknownDevice(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	err := iotObj.Push.NotifyDevice(context.Background(), "no-such-device")
	assert.True(t, errors.Is(err, common.ErrUnknownDevice))
}

package iot

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/relay-sync-service/pkg/db"
	"liyu1981.xyz/relay-sync-service/pkg/iot/mocks"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type MockSet struct {
	Client    *mocks.MockIDeviceClient
	Notifier  *mocks.MockINotifier
	Telemetry *mocks.MockITelemetry
	Push      *mocks.MockIPush
	Alert     *mocks.MockIAlert
	Clock     *fakeClock
}

func GetMockIOTWithMemorySqliteDialector(t *testing.T, useMockPush, useMockAlert bool) (
	*gomock.Controller,
	*IOT,
	*MockSet,
) {
	ctrl := gomock.NewController(t)

	set := &MockSet{
		Client:    mocks.NewMockIDeviceClient(ctrl),
		Notifier:  mocks.NewMockINotifier(ctrl),
		Telemetry: mocks.NewMockITelemetry(ctrl),
		Push:      mocks.NewMockIPush(ctrl),
		Alert:     mocks.NewMockIAlert(ctrl),
		Clock:     &fakeClock{now: time.Date(2026, 3, 4, 10, 20, 0, 0, time.UTC)},
	}

	dbInstance := db.GetInstance(db.UseMemorySqliteDialector()) // ensure migrations
	iotInstance := New(*dbInstance, DefaultOptions())
	iotInstance.Clock = set.Clock.Now
	iotInstance.startedAt = set.Clock.Now()

	services := iotInstance.DefaultServices()
	if useMockPush {
		services.Push = set.Push
	}
	if useMockAlert {
		services.Alert = set.Alert
	}
	iotInstance.WithServices(services)
	iotInstance.WithCollaborators(CollaboratorOpts{
		DeviceClient: set.Client,
		Notifier:     set.Notifier,
	})

	return ctrl, iotInstance, set
}

// restartIOT builds a second coordinator over the same database, as after a
// process restart.
func restartIOT(prev *IOT, set *MockSet) *IOT {
	next := New(prev.Db, prev.Opts)
	next.Clock = set.Clock.Now
	next.startedAt = set.Clock.Now()
	next.WithServices(next.DefaultServices())
	next.WithCollaborators(CollaboratorOpts{DeviceClient: set.Client, Notifier: set.Notifier})
	return next
}

func seedDevice(t *testing.T, i *IOT) *models.Device {
	device, err := i.Device.CreateDevice(&models.Device{
		ID:      uuid.NewString(),
		Address: "192.168.1.50",
		Name:    "boiler",
	})
	require.NoError(t, err)
	return device
}

func flatPrices(day time.Time, v float64) []models.PricePoint {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, models.PriceArrayLen)
	for i := range points {
		points[i] = models.PricePoint{Time: start.Add(time.Duration(i) * 15 * time.Minute), Price: v}
	}
	return points
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

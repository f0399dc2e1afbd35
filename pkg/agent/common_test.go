package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"liyu1981.xyz/relay-sync-service/pkg/models"
)

type fakeUptime struct {
	mu sync.Mutex
	d  time.Duration
}

func (u *fakeUptime) Uptime() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.d
}

func (u *fakeUptime) Advance(d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.d += d
}

type fakeClock struct {
	now time.Time
	ok  bool
}

func (c fakeClock) Now() (time.Time, bool) {
	return c.now, c.ok
}

type pullResult struct {
	snapshot *models.Snapshot
	err      error
}

type fakeCoordinator struct {
	mu         sync.Mutex
	pulls      []pullResult
	pullCalls  int
	heartbeats []models.Heartbeat
	hbErrs     []error
	hbCalls    int
}

var errTransient = errors.New("connection reset by peer")

func (c *fakeCoordinator) queue(results ...pullResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pulls = append(c.pulls, results...)
}

func (c *fakeCoordinator) PullSnapshot(_ context.Context) (*models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pullCalls++
	if len(c.pulls) == 0 {
		return nil, errTransient
	}
	r := c.pulls[0]
	c.pulls = c.pulls[1:]
	return r.snapshot, r.err
}

func (c *fakeCoordinator) SendHeartbeat(_ context.Context, hb *models.Heartbeat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hbCalls++
	if len(c.hbErrs) > 0 {
		err := c.hbErrs[0]
		c.hbErrs = c.hbErrs[1:]
		if err != nil {
			return err
		}
	}
	c.heartbeats = append(c.heartbeats, *hb)
	return nil
}

var testServerTime = time.Date(2026, 3, 4, 10, 20, 0, 0, time.UTC)

// snapshotAt returns a valid snapshot whose schedule is ON only in the given
// slots.
func snapshotAt(lastUpdated int64, on ...int) *models.Snapshot {
	s := &models.Snapshot{
		DeviceID:    "relay-1",
		Policy:      models.DefaultPolicy("relay-1"),
		Schedule:    make([]bool, models.SlotsPerDay),
		Prices:      make([]float64, models.SlotsPerDay),
		ServerSlot:  41,
		ServerTime:  testServerTime.UnixMilli(),
		LastUpdated: lastUpdated,
	}
	for i := range s.Prices {
		s.Prices[i] = 0.2 + float64(i)/1000
	}
	for _, slot := range on {
		s.Schedule[slot] = true
	}
	return s
}

func newTestAgent(coord Coordinator, relay Relay, clock Clock) (*Agent, *fakeUptime) {
	cfg := &Config{DeviceID: "relay-1", CoordinatorURL: "http://coordinator"}
	cfg.setDefaults()
	cfg.RetryBaseDelay = time.Millisecond
	cfg.Timezone = "UTC"
	_ = cfg.validate()

	uptime := &fakeUptime{d: time.Hour}
	return New(cfg, coord, relay, uptime, clock), uptime
}

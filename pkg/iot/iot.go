package iot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"liyu1981.xyz/relay-sync-service/pkg/db"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

type IDevice interface {
	CreateDevice(input *models.Device) (*models.Device, error)
	GetDevice(deviceID string) (*models.Device, error)
	ListDevices() ([]models.Device, error)
	DeleteDevice(deviceID string) error
}

type IPolicy interface {
	GetPolicy(deviceID string) (*models.Policy, error)
	SavePolicy(deviceID string, input *models.Policy) (*models.Policy, error)
}

type ISnapshot interface {
	BuildSnapshot(deviceID string) (*models.Snapshot, error)
}

type IHeartbeat interface {
	IngestHeartbeat(deviceID string, hb *models.Heartbeat) (*models.DeviceStatus, error)
}

// IAlert is the durable notification dedup store.
type IAlert interface {
	GetNotification(key string) (*models.NotificationRecord, error)
	RecordNotification(key string, deviceID string, at time.Time) error
	ClearNotification(key string) error
}

type IPush interface {
	NotifyDevice(ctx context.Context, deviceID string) error
}

type IControl interface {
	ManualControl(ctx context.Context, deviceID string, action models.ControlAction) error
	Reconcile(ctx context.Context, deviceID string) (*models.ReconcileResult, error)
}

type ILiveness interface {
	PollDevice(ctx context.Context, deviceID string) (*models.DeviceStatus, error)
	Sweep(ctx context.Context)
	CheckCoordinatorHealth(ctx context.Context)
}

// IDeviceClient talks to the local control surface of a relay.
type IDeviceClient interface {
	Wake(ctx context.Context, address string, path string) error
	ScriptControl(ctx context.Context, address string, action models.ControlAction) error
	RPCSetSwitch(ctx context.Context, address string, action models.ControlAction) error
	LegacyRelay(ctx context.Context, address string, action models.ControlAction) error
	GetStatus(ctx context.Context, address string) (*models.LiveStatus, error)
}

// INotifier delivers a text alert to an operator.
type INotifier interface {
	Notify(ctx context.Context, message string) error
}

type ITelemetry interface {
	RecordHeartbeat(ctx context.Context, status *models.DeviceStatus) error
}

type Options struct {
	HeartbeatStale  time.Duration
	PriceStale      time.Duration
	PollTimeout     time.Duration
	PushCooldownMin time.Duration
	PushCooldownMax time.Duration
}

func DefaultOptions() Options {
	return Options{
		HeartbeatStale:  10 * time.Minute,
		PriceStale:      26 * time.Hour,
		PollTimeout:     3 * time.Second,
		PushCooldownMin: 5 * time.Second,
		PushCooldownMax: 10 * time.Minute,
	}
}

type IOT struct {
	Db     db.DB
	Opts   Options
	Prices *PriceStore
	Status *StatusStore
	Clock  func() time.Time

	DeviceClient IDeviceClient
	Notifier     INotifier
	Telemetry    ITelemetry

	Device    IDevice
	Policy    IPolicy
	Snapshot  ISnapshot
	Heartbeat IHeartbeat
	Alert     IAlert
	Push      IPush
	Control   IControl
	Liveness  ILiveness

	startedAt   time.Time
	cooldowns   sync.Map
	lastStamp   atomic.Int64
	pushWorkers sync.WaitGroup
}

func New(d db.DB, opts Options) *IOT {
	i := &IOT{
		Db:     d,
		Opts:   opts,
		Prices: NewPriceStore(),
		Status: NewStatusStore(),
	}
	i.startedAt = i.now()
	return i
}

type ServiceOpts struct {
	Device    IDevice
	Policy    IPolicy
	Snapshot  ISnapshot
	Heartbeat IHeartbeat
	Alert     IAlert
	Push      IPush
	Control   IControl
	Liveness  ILiveness
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Device != nil {
		i.Device = opts.Device
	}
	if opts.Policy != nil {
		i.Policy = opts.Policy
	}
	if opts.Snapshot != nil {
		i.Snapshot = opts.Snapshot
	}
	if opts.Heartbeat != nil {
		i.Heartbeat = opts.Heartbeat
	}
	if opts.Alert != nil {
		i.Alert = opts.Alert
	}
	if opts.Push != nil {
		i.Push = opts.Push
	}
	if opts.Control != nil {
		i.Control = opts.Control
	}
	if opts.Liveness != nil {
		i.Liveness = opts.Liveness
	}
	return i
}

// DefaultServices wires every service to its database backed implementation.
func (i *IOT) DefaultServices() ServiceOpts {
	return ServiceOpts{
		Device:    i.GetIDevice(),
		Policy:    i.GetIPolicy(),
		Snapshot:  i.GetISnapshot(),
		Heartbeat: i.GetIHeartbeat(),
		Alert:     i.GetIAlert(),
		Push:      i.GetIPush(),
		Control:   i.GetIControl(),
		Liveness:  i.GetILiveness(),
	}
}

type CollaboratorOpts struct {
	DeviceClient IDeviceClient
	Notifier     INotifier
	Telemetry    ITelemetry
}

func (i *IOT) WithCollaborators(opts CollaboratorOpts) *IOT {
	if opts.DeviceClient != nil {
		i.DeviceClient = opts.DeviceClient
	}
	if opts.Notifier != nil {
		i.Notifier = opts.Notifier
	}
	if opts.Telemetry != nil {
		i.Telemetry = opts.Telemetry
	}
	return i
}

func (i *IOT) now() time.Time {
	if i.Clock != nil {
		return i.Clock()
	}
	return time.Now()
}

// Now is the coordinator clock.
func (i *IOT) Now() time.Time {
	return i.now()
}

// WaitPushes blocks until background push-notify calls have returned.
func (i *IOT) WaitPushes() {
	i.pushWorkers.Wait()
}

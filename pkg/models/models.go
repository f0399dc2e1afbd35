package models

import (
	"encoding/json"
	"time"
)

const (
	SlotsPerDay   = 96
	HoursPerDay   = 24
	PriceArrayLen = 2 * SlotsPerDay
)

type TimeFrame string

const (
	TimeFrame15Min TimeFrame = "15min"
	TimeFrame30Min TimeFrame = "30min"
	TimeFrame1Hour TimeFrame = "1hour"
)

// SlotsPerPeriod is how many 15-minute slots one period aggregates.
func (tf TimeFrame) SlotsPerPeriod() int {
	switch tf {
	case TimeFrame30Min:
		return 2
	case TimeFrame1Hour:
		return 4
	default:
		return 1
	}
}

func (tf TimeFrame) Valid() bool {
	return tf == TimeFrame15Min || tf == TimeFrame30Min || tf == TimeFrame1Hour
}

// ManualState is "on", "off" or empty. Empty is encoded as JSON null and
// means the override is paused without a forced value.
type ManualState string

const (
	ManualStateNone ManualState = ""
	ManualStateOn   ManualState = "on"
	ManualStateOff  ManualState = "off"
)

func (m ManualState) Valid() bool {
	return m == ManualStateNone || m == ManualStateOn || m == ManualStateOff
}

func (m ManualState) MarshalJSON() ([]byte, error) {
	if m == ManualStateNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

func (m *ManualState) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ManualStateNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ManualState(s)
	return nil
}

type ControlAction string

const (
	ControlOn    ControlAction = "on"
	ControlOff   ControlAction = "off"
	ControlClear ControlAction = "clear"
)

func ControlFor(on bool) ControlAction {
	if on {
		return ControlOn
	}
	return ControlOff
}

type Device struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	Address         string     `json:"address"`
	Name            string     `json:"name"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt,omitempty"`

	Policy *Policy `gorm:"foreignKey:DeviceID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

type Policy struct {
	DeviceID        string      `gorm:"primaryKey" json:"deviceId"`
	MinPrice        float64     `json:"minPrice"`
	MaxPrice        float64     `json:"maxPrice"`
	NumCheapest     int         `json:"numCheapest"`
	TimeFrame       TimeFrame   `gorm:"type:varchar(8)" json:"timeFrame"`
	ManualOverride  bool        `json:"manualOverride"`
	ManualState     ManualState `gorm:"type:varchar(4)" json:"manualState"`
	ReversedControl bool        `json:"reversedControl"`
	FallbackHours   []bool      `gorm:"serializer:json" json:"fallbackHours"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// DefaultMaxPrice is high enough that the ceiling never triggers.
const DefaultMaxPrice = 1000.0

func DefaultPolicy(deviceID string) Policy {
	return Policy{
		DeviceID:    deviceID,
		MinPrice:    0,
		MaxPrice:    DefaultMaxPrice,
		NumCheapest: 0,
		TimeFrame:   TimeFrame1Hour,
	}
}

const CoordinatorNotificationKey = "coordinator"

func DeviceNotificationKey(deviceID string) string {
	return "device:" + deviceID
}

type NotificationRecord struct {
	Key        string `gorm:"primaryKey;column:notify_key"`
	DeviceID   string `gorm:"index"`
	NotifiedAt time.Time
}

type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

type Snapshot struct {
	DeviceID    string    `json:"deviceId"`
	Policy      Policy    `json:"policy"`
	Schedule    []bool    `json:"schedule"`
	Prices      []float64 `json:"prices"`
	ServerSlot  int       `json:"serverSlot"`
	ServerTime  int64     `json:"serverTime"`
	LastUpdated int64     `json:"lastUpdated"`
}

// Heartbeat is the device-reported telemetry. Uptime and LastSync are
// seconds of device uptime unless LastSync is large enough to be an epoch.
type Heartbeat struct {
	Uptime        float64 `mapstructure:"uptime" json:"uptime"`
	SwitchOn      bool    `mapstructure:"switchOn" json:"switchOn"`
	LastPrice     float64 `mapstructure:"lastPrice" json:"lastPrice"`
	LastSync      float64 `mapstructure:"lastSync" json:"lastSync"`
	ConfigVersion int64   `mapstructure:"configVersion" json:"configVersion"`
}

// DeviceStatus is the coordinator's view of a device.
type DeviceStatus struct {
	DeviceID      string    `json:"deviceId"`
	Online        bool      `json:"online"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	SwitchOn      *bool     `json:"switchOn"`
	LastPrice     float64   `json:"lastPrice"`
	LastSync      time.Time `json:"lastSync"`
	ConfigVersion int64     `json:"configVersion"`
	LastPoll      time.Time `json:"lastPoll"`
	PollReachable bool      `json:"pollReachable"`
	Error         string    `json:"error,omitempty"`
	LastNotified  time.Time `json:"lastNotified"`
}

// LiveStatus is what a direct status poll returns.
type LiveStatus struct {
	Reachable bool `json:"reachable"`
	Output    bool `json:"output"`
}

type ReconcileOutcome string

const (
	ReconcileSkipped   ReconcileOutcome = "skipped"
	ReconcileInSync    ReconcileOutcome = "in_sync"
	ReconcileCorrected ReconcileOutcome = "corrected"
)

type ReconcileResult struct {
	DeviceID string           `json:"deviceId"`
	Outcome  ReconcileOutcome `json:"outcome"`
	Reason   string           `json:"reason,omitempty"`
	Slot     int              `json:"slot"`
	Desired  bool             `json:"desired"`
	Actual   *bool            `json:"actual,omitempty"`
	Tier     string           `json:"tier,omitempty"`
}

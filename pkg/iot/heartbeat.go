package iot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

const (
	epochSecondsFloor = 1e9
	epochMillisFloor  = 1e12
)

// DecodeHeartbeat reads a device payload whose numbers and booleans may come
// as strings or integers depending on the firmware.
func DecodeHeartbeat(raw map[string]any) (*models.Heartbeat, error) {
	if _, ok := raw["uptime"]; !ok {
		return nil, fmt.Errorf("%w: heartbeat without uptime", common.ErrValidation)
	}

	var hb models.Heartbeat
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &hb,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return &hb, nil
}

// NormalizeSyncTime turns the device-reported last sync into a wall clock
// time. A sync value not larger than the uptime is an uptime reading; a large
// one is already an epoch in seconds or milliseconds.
func NormalizeSyncTime(now time.Time, uptime float64, syncValue float64) time.Time {
	switch {
	case syncValue <= 0:
		return time.Time{}
	case uptime > 0 && uptime >= syncValue:
		ago := time.Duration((uptime - syncValue) * float64(time.Second))
		return now.Add(-ago)
	case syncValue >= epochMillisFloor:
		return time.UnixMilli(int64(syncValue))
	case syncValue >= epochSecondsFloor:
		return time.Unix(int64(syncValue), 0)
	default:
		return time.Time{}
	}
}

func validateHeartbeat(hb *models.Heartbeat) error {
	for name, v := range map[string]float64{"uptime": hb.Uptime, "lastSync": hb.LastSync, "lastPrice": hb.LastPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a number", common.ErrValidation, name)
		}
	}
	if hb.Uptime < 0 || hb.LastSync < 0 {
		return fmt.Errorf("%w: uptime and lastSync must be >= 0", common.ErrValidation)
	}
	return nil
}

func (i *IOT) ingestHeartbeat(deviceID string, hb *models.Heartbeat) (*models.DeviceStatus, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTHeartbeat)

	if _, err := i.getDevice(deviceID); err != nil {
		return nil, err
	}
	if err := validateHeartbeat(hb); err != nil {
		return nil, err
	}

	now := i.now()
	syncAt := NormalizeSyncTime(now, hb.Uptime, hb.LastSync)

	status := i.Status.Update(deviceID, func(st *models.DeviceStatus) {
		st.Online = true
		st.LastHeartbeat = now
		st.SwitchOn = boolPtr(hb.SwitchOn)
		st.LastPrice = hb.LastPrice
		st.LastSync = syncAt
		st.ConfigVersion = hb.ConfigVersion
		st.Error = ""
		st.LastNotified = time.Time{}
	})

	if err := i.Db.Conn.Model(&models.Device{}).Where("id = ?", deviceID).
		Update("last_heartbeat_at", now).Error; err != nil {
		logger.Warn("Failed to persist last heartbeat", zap.String("device_id", deviceID), zap.Error(err))
	}

	if i.Alert != nil {
		if err := i.Alert.ClearNotification(models.DeviceNotificationKey(deviceID)); err != nil {
			logger.Warn("Failed to clear offline notification", zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	if i.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), i.Opts.PollTimeout)
		if err := i.Telemetry.RecordHeartbeat(ctx, &status); err != nil {
			logger.Warn("Failed to record heartbeat telemetry", zap.String("device_id", deviceID), zap.Error(err))
		}
		cancel()
	}

	logger.Info("Accepted heartbeat", zap.String("device_id", deviceID), zap.Reflect("heartbeat", hb))
	return &status, nil
}

type IHeartbeatImpl struct {
	iot *IOT
}

func (ih *IHeartbeatImpl) IngestHeartbeat(deviceID string, hb *models.Heartbeat) (*models.DeviceStatus, error) {
	return ih.iot.ingestHeartbeat(deviceID, hb)
}

func (i *IOT) GetIHeartbeat() IHeartbeat {
	return &IHeartbeatImpl{iot: i}
}

package telemetry

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

const Measurement = "relay_heartbeat"

// Influx writes one point per accepted heartbeat.
type Influx struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInflux(url, token, org, bucket string) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
	}
}

func HeartbeatPoint(status *models.DeviceStatus) *write.Point {
	fields := map[string]interface{}{
		"online":         status.Online,
		"last_price":     status.LastPrice,
		"config_version": status.ConfigVersion,
	}
	if status.SwitchOn != nil {
		fields["switch_on"] = *status.SwitchOn
	}
	if !status.LastSync.IsZero() {
		fields["sync_age_s"] = status.LastHeartbeat.Sub(status.LastSync).Seconds()
	}
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"device_id": status.DeviceID},
		fields,
		status.LastHeartbeat,
	)
}

func (i *Influx) RecordHeartbeat(ctx context.Context, status *models.DeviceStatus) error {
	if err := i.writer.WritePoint(ctx, HeartbeatPoint(status)); err != nil {
		return fmt.Errorf("error writing to InfluxDB: %w", err)
	}
	return nil
}

func (i *Influx) Close() {
	i.client.Close()
}

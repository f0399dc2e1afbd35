package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	DBType       string
	HttpHostPort string
	GrpcHostPort string

	DefaultRate  float64
	DefaultBurst int

	LivenessInterval  time.Duration
	HeartbeatStale    time.Duration
	PriceStale        time.Duration
	PollTimeout       time.Duration
	PushInterval      time.Duration
	PushCooldownMin   time.Duration
	PushCooldownMax   time.Duration
	ReconcileInterval time.Duration

	NotifyTransport string
	MqttBroker      string
	MqttClientID    string
	MqttTopicRoot   string
	KafkaBrokers    []string
	KafkaTopic      string
	PushoverToken   string
	PushoverUserKey string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// LoadServerConfig reads the coordinator settings from the environment. Call
// godotenv before it when a .env file is used.
func LoadServerConfig() (*ServerConfig, error) {
	var err error
	cfg := &ServerConfig{
		DBType:       strings.TrimSpace(os.Getenv(EnvKeyIOTDBType)),
		HttpHostPort: strings.TrimSpace(os.Getenv(EnvKeyIOTHttpHostPort)),
		GrpcHostPort: strings.TrimSpace(os.Getenv(EnvKeyIOTGrpcHostPort)),

		NotifyTransport: envOr(EnvKeyIOTNotifyTransport, "log"),
		MqttBroker:      os.Getenv(EnvKeyIOTMqttBroker),
		MqttClientID:    envOr(EnvKeyIOTMqttClientID, "relay-sync-service"),
		MqttTopicRoot:   envOr(EnvKeyIOTMqttTopicRoot, "relays"),
		KafkaTopic:      envOr(EnvKeyIOTKafkaTopic, "relay-alerts"),
		PushoverToken:   os.Getenv(EnvKeyIOTPushoverToken),
		PushoverUserKey: os.Getenv(EnvKeyIOTPushoverUserKey),

		InfluxURL:    os.Getenv(EnvKeyIOTInfluxURL),
		InfluxToken:  os.Getenv(EnvKeyIOTInfluxToken),
		InfluxOrg:    os.Getenv(EnvKeyIOTInfluxOrg),
		InfluxBucket: os.Getenv(EnvKeyIOTInfluxBucket),
	}

	if brokers := strings.TrimSpace(os.Getenv(EnvKeyIOTKafkaBrokers)); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.HttpHostPort == "" {
		cfg.HttpHostPort = ":1080"
	}

	if cfg.DefaultRate, err = strconv.ParseFloat(os.Getenv(EnvKeyIOTDefaultRate), 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a float64 value: %w", EnvKeyIOTDefaultRate, err)
	}

	var burst int64
	if burst, err = strconv.ParseInt(os.Getenv(EnvKeyIOTDefaultBurst), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be an int value: %w", EnvKeyIOTDefaultBurst, err)
	}
	cfg.DefaultBurst = int(burst)

	durations := []struct {
		key  string
		dst  *time.Duration
		dflt time.Duration
	}{
		{EnvKeyIOTLivenessInterval, &cfg.LivenessInterval, time.Minute},
		{EnvKeyIOTHeartbeatStale, &cfg.HeartbeatStale, 10 * time.Minute},
		{EnvKeyIOTPriceStale, &cfg.PriceStale, 26 * time.Hour},
		{EnvKeyIOTPollTimeout, &cfg.PollTimeout, 3 * time.Second},
		{EnvKeyIOTPushInterval, &cfg.PushInterval, 15 * time.Minute},
		{EnvKeyIOTPushCooldownMin, &cfg.PushCooldownMin, 5 * time.Second},
		{EnvKeyIOTPushCooldownMax, &cfg.PushCooldownMax, 10 * time.Minute},
		{EnvKeyIOTReconcileInterval, &cfg.ReconcileInterval, 5 * time.Minute},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.key, d.dflt); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func envOr(key, dflt string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return dflt
}

func envDuration(key string, dflt time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return dflt, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s, should be a duration like 30s: %w", key, err)
	}
	return d, nil
}

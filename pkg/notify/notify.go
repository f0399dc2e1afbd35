package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
)

// Notifier delivers operator alerts over one transport.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	Close() error
}

// Alert is the structured payload of the message based transports.
type Alert struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	Source  string    `json:"source"`
}

func newAlert(message string) Alert {
	return Alert{Message: message, At: time.Now().UTC(), Source: "relay-sync-service"}
}

// LogNotifier only writes alerts to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTNotify)}
}

func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.logger.Warn("ALERT", zap.String("message", message))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// New picks the transport named by cfg.NotifyTransport.
func New(cfg *common.ServerConfig) (Notifier, error) {
	switch strings.ToLower(cfg.NotifyTransport) {
	case "", "log":
		return NewLogNotifier(), nil
	case "pushover":
		if cfg.PushoverToken == "" || cfg.PushoverUserKey == "" {
			return nil, fmt.Errorf("pushover needs %s and %s", common.EnvKeyIOTPushoverToken, common.EnvKeyIOTPushoverUserKey)
		}
		return NewPushover(cfg.PushoverToken, cfg.PushoverUserKey), nil
	case "mqtt":
		if cfg.MqttBroker == "" {
			return nil, fmt.Errorf("mqtt needs %s", common.EnvKeyIOTMqttBroker)
		}
		n := NewMQTT(cfg.MqttBroker, cfg.MqttClientID, cfg.MqttTopicRoot)
		if err := n.Connect(); err != nil {
			return nil, err
		}
		return n, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka needs %s", common.EnvKeyIOTKafkaBrokers)
		}
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.NotifyTransport)
	}
}

package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIOTDBType string = "IOT_DB_TYPE"
	EnvKeyIOTDbPath string = "IOT_DB_PATH"

	EnvKeyIOTHttpHostPort string = "IOT_HTTP_HOST_PORT"
	EnvKeyIOTGrpcHostPort string = "IOT_GRPC_HOST_PORT"

	EnvKeyIOTDefaultRate  string = "IOT_DEFAULT_RATE"
	EnvKeyIOTDefaultBurst string = "IOT_DEFAULT_BURST"

	EnvKeyIOTLivenessInterval  string = "IOT_LIVENESS_INTERVAL"
	EnvKeyIOTHeartbeatStale    string = "IOT_HEARTBEAT_STALE_AFTER"
	EnvKeyIOTPriceStale        string = "IOT_PRICE_STALE_AFTER"
	EnvKeyIOTPollTimeout       string = "IOT_POLL_TIMEOUT"
	EnvKeyIOTPushInterval      string = "IOT_PUSH_INTERVAL"
	EnvKeyIOTPushCooldownMin   string = "IOT_PUSH_COOLDOWN_MIN"
	EnvKeyIOTPushCooldownMax   string = "IOT_PUSH_COOLDOWN_MAX"
	EnvKeyIOTReconcileInterval string = "IOT_RECONCILE_INTERVAL"

	EnvKeyIOTNotifyTransport   string = "IOT_NOTIFY_TRANSPORT"
	EnvKeyIOTMqttBroker        string = "IOT_MQTT_BROKER"
	EnvKeyIOTMqttClientID      string = "IOT_MQTT_CLIENT_ID"
	EnvKeyIOTMqttTopicRoot     string = "IOT_MQTT_TOPIC_ROOT"
	EnvKeyIOTKafkaBrokers      string = "IOT_KAFKA_BROKERS"
	EnvKeyIOTKafkaTopic        string = "IOT_KAFKA_TOPIC"
	EnvKeyIOTPushoverToken     string = "IOT_PUSHOVER_TOKEN"
	EnvKeyIOTPushoverUserKey   string = "IOT_PUSHOVER_USER_KEY"
	EnvKeyIOTInfluxURL         string = "IOT_INFLUX_URL"
	EnvKeyIOTInfluxToken       string = "IOT_INFLUX_TOKEN"
	EnvKeyIOTInfluxOrg         string = "IOT_INFLUX_ORG"
	EnvKeyIOTInfluxBucket      string = "IOT_INFLUX_BUCKET"

	LoggerNameIOTCore       string = "iot_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameRelayAgent    string = "relay_agent"
	LoggerFieldIOTCategory  string = "category"

	LoggerCategoryIOTSnapshot  string = "snapshot"
	LoggerCategoryIOTPolicy    string = "policy"
	LoggerCategoryIOTDevice    string = "device"
	LoggerCategoryIOTHeartbeat string = "heartbeat"
	LoggerCategoryIOTPush      string = "push"
	LoggerCategoryIOTLiveness  string = "liveness"
	LoggerCategoryIOTControl   string = "control"
	LoggerCategoryIOTReconcile string = "reconcile"
	LoggerCategoryIOTNotify    string = "notify"
	LoggerCategoryAgentSync    string = "sync"
	LoggerCategoryAgentApply   string = "apply"
)

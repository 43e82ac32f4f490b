package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvStorageBackend    = "STORAGE_BACKEND"
	EnvMemorySeedFile    = "MEMORY_SEED_FILE"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTAccessSecret = "JWT_ACCESS_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvTokenTimeZone       = "TOKEN_TIME_ZONE"
	EnvTokenDayCutoverHour = "TOKEN_DAY_CUTOVER_HOUR"

	EnvKafkaEnabled        = "KAFKA_ENABLED"
	EnvTokenEventsTopic    = "TOKEN_EVENTS_TOPIC"
	EnvTokenEventsDLQTopic = "TOKEN_EVENTS_DLQ_TOPIC"
	EnvReconcilerGroupID   = "RECONCILER_GROUP_ID"

	EnvDaySummaryEnabled = "DAY_SUMMARY_ENABLED"
	EnvMetricsEnabled    = "METRICS_ENABLED"
)

package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medqueue"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultStorageBackend    = StorageMongo

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTokenTimeZone       = "UTC"
	DefaultTokenDayCutoverHour = 1

	DefaultKafkaEnabled        = false
	DefaultTokenEventsTopic    = "token-events"
	DefaultTokenEventsDLQTopic = "dlq-token-events"
	DefaultReconcilerGroupID   = "token-reconciler"

	DefaultDaySummaryEnabled = true
	DefaultMetricsEnabled    = true
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

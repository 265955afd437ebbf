package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvReservationTTL  = "RESERVATION_TTL"
	EnvSweepInterval   = "SWEEP_INTERVAL"
	EnvReserveRetries  = "RESERVE_RETRIES"
	EnvEventsEnabled   = "EVENTS_ENABLED"
	EnvEventsTopic     = "EVENTS_TOPIC"
	EnvEventsDLQTopic  = "EVENTS_DLQ_TOPIC"
	EnvMaxStayNights   = "MAX_STAY_NIGHTS"
	EnvMaxBatchItems   = "MAX_BATCH_ITEMS"
	EnvSweepBatchSize  = "SWEEP_BATCH_SIZE"
)

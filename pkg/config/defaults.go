package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "stockpile"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Reservation holds cover a checkout window, not a booking lifetime.
	DefaultReservationTTL = 15 * time.Minute
	DefaultSweepInterval  = 1 * time.Minute
	DefaultReserveRetries = 3

	DefaultEventsEnabled  = false
	DefaultEventsTopic    = "inventory.events"
	DefaultEventsDLQTopic = ""

	DefaultMaxStayNights  = 30
	DefaultMaxBatchItems  = 50
	DefaultSweepBatchSize = 500
)

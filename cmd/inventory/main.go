package main

import (
	"context"

	"stockpile/internal/inventory/events"
	"stockpile/internal/inventory/handler"
	"stockpile/internal/inventory/repository"
	"stockpile/internal/inventory/service"
	"stockpile/internal/inventory/validator"
	"stockpile/pkg/app"
	"stockpile/pkg/config"
	mongotx "stockpile/pkg/db/mongo"
	"stockpile/pkg/kafka"
	kafka_config "stockpile/pkg/kafka/config"
)

const ServiceName = "inventory"

func main() {
	cfg := config.Load(ServiceName)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	// Log all configuration values
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Inventory service")

	serverApp := app.NewApplication(cfg)
	manager := initServices(cfg, serverApp)

	sweeper := service.NewSweepRunner(manager, cfg.SweepInterval, cfg.Log)
	sweeper.Start(context.Background())
	serverApp.OnShutdown(sweeper.Stop)

	serverApp.SetApp(
		handler.NewInventoryHandler(manager, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) service.ReservationManager {
	inventoryValidator := validator.NewInventoryValidator(cfg.Log, cfg.MaxBatchItems, cfg.MaxStayNights)
	ledgerRepo := repository.NewMongoLedgerRepository(cfg)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)

	var publisher service.EventPublisher
	if cfg.EventsEnabled {
		producer, err := kafka.NewProducer(kafka_config.Load(), cfg.EventsTopic, cfg.EventsDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		kafkaPublisher := events.NewKafkaPublisher(producer, cfg.Log)
		serverApp.OnShutdown(func() {
			if err := kafkaPublisher.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka publisher", "error", err)
			}
		})
		publisher = kafkaPublisher
		cfg.Log.Info("Inventory event publishing enabled", "topic", cfg.EventsTopic)
	}

	manager := service.NewReservationManager(
		ledgerRepo,
		reservationRepo,
		txManager,
		inventoryValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservation manager initialized", "database", cfg.MongoDatabaseName)
	return manager
}

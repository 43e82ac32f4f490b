package main

import (
	"context"
	"net/http"
	"os"

	"medqueue/internal/tokens/clock"
	"medqueue/internal/tokens/events"
	"medqueue/internal/tokens/handler"
	"medqueue/internal/tokens/loadindex"
	"medqueue/internal/tokens/repository"
	"medqueue/internal/tokens/service"
	"medqueue/internal/tokens/summary"
	"medqueue/internal/tokens/validator"
	"medqueue/pkg/app"
	"medqueue/pkg/config"
	"medqueue/pkg/kafka"
	kafkaconfig "medqueue/pkg/kafka/config"
	kafkamiddleware "medqueue/pkg/kafka/middleware"
	"medqueue/pkg/metrics"
)

const ServiceName = "medqueue-tokens"

type stores struct {
	ledger      repository.TokenLedger
	patients    repository.PatientDirectory
	departments repository.DepartmentDirectory
	doctors     repository.DoctorDirectory
	db          handler.Pinger
}

func main() {
	cfg := config.Load(ServiceName)
	defer cfg.GracefulShutdown()

	m := metrics.New()
	v := validator.NewTokenValidator()

	st := initStores(cfg, v)
	publisher, closePublisher := initPublisher(cfg, m)

	clk, err := clock.New(cfg.Location, cfg.TokenDayCutoverHour)
	if err != nil {
		cfg.Log.Fatal("Invalid token clock settings", "error", err)
	}

	tokenService := service.NewTokenService(service.Dependencies{
		Ledger:      st.ledger,
		Patients:    st.patients,
		Departments: st.departments,
		LoadIndex:   loadindex.New(st.doctors),
		Clock:       clk,
		Events:      publisher,
		Metrics:     m,
		Validator:   v,
		Log:         cfg.Log,
	})
	cfg.Log.Info("Token service initialized", "today", clk.Today())

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = m.Handler()
	}

	application := app.NewApplication()
	application.SetApp(cfg,
		handler.NewHealthHandler(st.db, cfg.Log),
		metricsHandler,
		handler.NewTokenHandler(tokenService, cfg.Log),
	)

	if cfg.DaySummaryEnabled {
		closer, err := summary.NewDayCloser(summary.Dependencies{
			Ledger:      st.ledger,
			Clock:       clk,
			Events:      publisher,
			Location:    cfg.Location,
			CutoverHour: cfg.TokenDayCutoverHour,
			Log:         cfg.Log,
		})
		if err != nil {
			cfg.Log.Fatal("Failed to create day close job", "error", err)
		}
		if err := closer.Start(); err != nil {
			cfg.Log.Fatal("Failed to start day close job", "error", err)
		}
		application.OnShutdown(closer.Stop)
	}
	application.OnShutdown(closePublisher)

	application.Run()
}

func initStores(cfg *config.Config, v *validator.TokenValidator) stores {
	if !cfg.UsesMongo() {
		dir := repository.NewMemoryDirectory()
		if cfg.MemorySeedFile != "" {
			if err := loadSeed(dir, cfg.MemorySeedFile); err != nil {
				cfg.Log.Fatal("Failed to load memory seed", "file", cfg.MemorySeedFile, "error", err)
			}
			cfg.Log.Info("Loaded memory seed", "file", cfg.MemorySeedFile)
		} else {
			cfg.Log.Warn("Memory storage has no seed file; every token request returns 404 until patients exist", "env", config.EnvMemorySeedFile)
		}
		cfg.Log.Warn("Using in-memory storage; data is lost on restart")
		return stores{
			ledger:      repository.NewMemoryTokenLedger(dir.Doctors(), dir.Departments()),
			patients:    dir.Patients(),
			departments: dir.Departments(),
			doctors:     dir.Doctors(),
		}
	}

	cfg.SetMongo()

	ledger := repository.NewMongoTokenLedger(cfg)
	if err := ledger.EnsureIndexes(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to ensure token ledger indexes", "error", err)
	}

	return stores{
		ledger:      ledger,
		patients:    repository.NewMongoPatientDirectory(cfg, v),
		departments: repository.NewMongoDepartmentDirectory(cfg),
		doctors:     repository.NewMongoDoctorDirectory(cfg),
		db:          cfg.Client.Mongo,
	}
}

func loadSeed(dir *repository.MemoryDirectory, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return dir.Load(f)
}

func initPublisher(cfg *config.Config, m *metrics.Metrics) (events.Publisher, func(context.Context)) {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, token events are not published")
		return events.Noop{}, func(context.Context) {}
	}

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.TokenEventsTopic, cfg.TokenEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafkamiddleware.MetricsProducerMiddleware(m))

	return events.NewKafkaPublisher(producer), func(context.Context) {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

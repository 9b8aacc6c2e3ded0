package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clinicbook/clinicbook-api/internal/config"
	"github.com/clinicbook/clinicbook-api/internal/events"
	"github.com/clinicbook/clinicbook-api/internal/handler"
	v1 "github.com/clinicbook/clinicbook-api/internal/handler/v1"
	"github.com/clinicbook/clinicbook-api/internal/notifier"
	"github.com/clinicbook/clinicbook-api/internal/remote"
	"github.com/clinicbook/clinicbook-api/internal/repository/postgres"
	"github.com/clinicbook/clinicbook-api/internal/scheduling"
	"github.com/clinicbook/clinicbook-api/internal/service"
	"github.com/clinicbook/clinicbook-api/pkg/database"
	"github.com/clinicbook/clinicbook-api/pkg/logger"
	"github.com/clinicbook/clinicbook-api/pkg/metrics"
	"github.com/clinicbook/clinicbook-api/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("loading configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("building logger: " + err.Error())
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("clinicbook")
	go reportDBConnections(ctx, db, collector)

	zone, err := time.LoadLocation(cfg.Scheduling.DefaultZone)
	if err != nil {
		return err
	}

	apptRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)

	var publisher events.Publisher = events.NopPublisher{}
	var rabbit *events.RabbitPublisher
	if cfg.AMQP.Enabled {
		rabbit, err = events.NewRabbitPublisher(cfg.AMQP.URI, cfg.AMQP.Exchange, collector, log)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publisher = rabbit
	}
	publisher = events.NewInstrumentedPublisher(publisher, collector)

	// Directories default to the local database; base URLs switch them to
	// sibling services.
	var patients service.PatientDirectory = service.NewLocalPatientDirectory(patientRepo)
	if cfg.Services.PatientsBaseURL != "" {
		patients = remote.NewPatientClient(cfg.Services.PatientsBaseURL, log)
	}
	var doctors service.DoctorDirectory = service.NewLocalDoctorDirectory(doctorRepo)
	if cfg.Services.DoctorsBaseURL != "" {
		doctors = remote.NewDoctorClient(cfg.Services.DoctorsBaseURL, log)
	}

	engine := scheduling.NewEngine(apptRepo, time.Duration(cfg.Scheduling.SlotMinutes)*time.Minute)
	appointmentSvc := service.NewAppointmentService(
		apptRepo,
		engine,
		patients,
		doctors,
		publisher,
		postgres.NewTxManager(db),
		service.SchedulingDefaults{
			SlotMinutes:       cfg.Scheduling.SlotMinutes,
			DurationMins:      cfg.Scheduling.DefaultDuration,
			WorkStart:         cfg.Scheduling.WorkStart,
			WorkEnd:           cfg.Scheduling.WorkEnd,
			Zone:              zone,
			AutoAdjustRetries: cfg.Scheduling.AutoAdjustAttempts,
		},
		log,
	)
	doctorSvc := service.NewDoctorService(doctorRepo, publisher, log)
	patientSvc := service.NewPatientService(patientRepo, publisher, log)

	if cfg.AMQP.Enabled && cfg.Notify.Enabled {
		var sender notifier.EmailSender = notifier.NewLogSender(log)
		if cfg.Notify.Mode == "smtp" {
			sender = notifier.NewSMTPSender(cfg.Notify.SMTPAddr, cfg.Notify.SMTPFrom, cfg.Notify.SMTPUsername, cfg.Notify.SMTPPassword)
		}
		worker, err := notifier.NewWorker(cfg.AMQP.URI, cfg.AMQP.Exchange, cfg.AMQP.NotifyQueue, patients, sender, log)
		if err != nil {
			return err
		}
		defer worker.Stop()
		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification worker stopped", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(ctx, cfg, log, collector, handler.Handlers{
		Patients:     v1.NewPatientHandler(patientSvc, log),
		Doctors:      v1.NewDoctorHandler(doctorSvc, log),
		Appointments: v1.NewAppointmentHandler(appointmentSvc, log),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func reportDBConnections(ctx context.Context, db *gorm.DB, collector *metrics.Collector) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
		}
	}
}

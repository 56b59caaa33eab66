package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinica/clinic/internal/config"
	"github.com/clinica/clinic/internal/domain/appointment"
	"github.com/clinica/clinic/internal/domain/attendance"
	"github.com/clinica/clinic/internal/domain/consultation"
	"github.com/clinica/clinic/internal/domain/medication"
	"github.com/clinica/clinic/internal/domain/patient"
	"github.com/clinica/clinic/internal/domain/prescription"
	"github.com/clinica/clinic/internal/domain/staff"
	"github.com/clinica/clinic/internal/platform/auth"
	"github.com/clinica/clinic/internal/platform/db"
	"github.com/clinica/clinic/internal/platform/metrics"
	"github.com/clinica/clinic/internal/platform/middleware"
	"github.com/clinica/clinic/internal/platform/notification"
	"github.com/clinica/clinic/internal/platform/websocket"
	"github.com/clinica/clinic/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic records API and live channel",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrationFiles(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.Files
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		AppName:         "clinic-server",
		TimeZone:        cfg.DBTimeZone,
		MaxConnLifetime: time.Hour,
		HealthCheck:     30 * time.Second,
	}
}

// withMigrator loads config, connects and hands a migrator to fn.
func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrationFiles(cfg), newLogger()))
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Live channel: local hub, relayed through Redis when configured so
	// every instance sees every notice.
	hub := websocket.NewHub(logger)
	var pub websocket.Publisher = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		relay := websocket.NewRelay(rdb, hub, logger)
		pub = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("live relay stopped")
			}
		}()
		logger.Info().Msg("live relay enabled")
	}

	e := newServer(cfg, pool, hub, pub, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer assembles the middleware stack and every route.
func newServer(cfg *config.Config, pool *pgxpool.Pool, hub *websocket.Hub, pub websocket.Publisher, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	tokens := auth.JWTConfig{Issuer: "clinic", SigningKey: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL}
	notifier := notification.NewNotifier(pub, logger)

	websocket.NewHandler(hub, tokens, cfg.CORSOrigins, logger).
		RegisterRoutes(e.Group(""), auth.JWTMiddleware(tokens), auth.RequireRole(auth.RoleAdmin))

	public := e.Group("/api")
	api := e.Group("/api", auth.JWTMiddleware(tokens))

	staffSvc := staff.NewService(staff.NewEmployeeRepoPG(pool), tokens)
	staff.NewHandler(staffSvc).RegisterRoutes(public, api)

	patientSvc := patient.NewService(patient.NewPatientRepoPG(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	apptSvc := appointment.NewService(appointment.NewAppointmentRepoPG(pool), notifier)
	appointment.NewHandler(apptSvc).RegisterRoutes(api)

	consultationSvc := consultation.NewService(consultation.NewConsultationRepoPG(pool), appointmentParties(apptSvc), notifier)
	consultation.NewHandler(consultationSvc).RegisterRoutes(api)

	prescriptionSvc := prescription.NewService(prescription.NewPrescriptionRepoPG(pool), prescriptionPatients(patientSvc), notifier)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(api)

	medication.NewHandler(medication.NewService(medication.NewMedicationRepoPG(pool))).RegisterRoutes(api)
	attendance.NewHandler(attendance.NewService(attendance.NewAttendanceRepoPG(pool))).RegisterRoutes(api)

	return e
}

func appointmentParties(svc *appointment.Service) consultation.AppointmentLookupFunc {
	return func(ctx context.Context, id uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
		a, err := svc.GetAppointment(ctx, id, nil)
		if err != nil {
			return uuid.Nil, nil, err
		}
		return a.PatientID, a.PhysicianID, nil
	}
}

func prescriptionPatients(svc *patient.Service) prescription.PatientLookupFunc {
	return func(ctx context.Context, id uuid.UUID) (*prescription.PatientInfo, error) {
		p, err := svc.GetPatient(ctx, id)
		if err != nil {
			return nil, err
		}
		return patientInfo(p, time.Now()), nil
	}
}

func patientInfo(p *patient.Patient, now time.Time) *prescription.PatientInfo {
	info := &prescription.PatientInfo{
		Name:       p.FullName(),
		NationalID: p.NationalID,
		Age:        p.AgeAt(now),
	}
	if p.Gender != nil {
		info.Gender = *p.Gender
	}
	if p.Address != nil {
		info.Address = *p.Address
	}
	if p.Phone != nil {
		info.Phone = *p.Phone
	}
	return info
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"ProjectsAPI/internal/config"
	"ProjectsAPI/internal/migrations"
	"ProjectsAPI/internal/repository"
	"ProjectsAPI/internal/service"
	externalHttp "ProjectsAPI/internal/transport/http"
	"ProjectsAPI/pkg/eventlog"
	"ProjectsAPI/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(os.Stderr, cfg.App.LogLevel, cfg.App.Environment)

	// выбираем хранилище проектов
	var (
		repo   service.Repo
		pinger externalHttp.Pinger
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		memRepo, err := repository.NewMemoryRepository()
		if err != nil {
			log.Fatal().Err(err).Msg("create memory store")
		}
		repo = memRepo
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		db, err := sql.Open("postgres", cfg.Database.PostgresDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("open Postgres")
		}
		defer func() { _ = db.Close() }()
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("ping Postgres")
		}
		if cfg.Database.MigrateOnStart {
			// у migrate своё соединение: его закрытие не должно закрывать пул приложения
			migrateDB, err := sql.Open("postgres", cfg.Database.PostgresDSN())
			if err != nil {
				log.Fatal().Err(err).Msg("open Postgres for migrations")
			}
			if err := migrations.Up(migrateDB, migrations.TargetPostgres, cfg.Database.MigrationsDir); err != nil {
				log.Fatal().Err(err).Msg("apply migrations")
			}
			_ = migrateDB.Close()
			log.Info().Str("dir", cfg.Database.MigrationsDir).Msg("migrations applied")
		}
		pgRepo := repository.NewProjectRepository(db)
		repo = pgRepo
		pinger = pgRepo
	}

	// подключаем NATS; без NATS_URL события не публикуются
	var events service.EventPublisher = eventlog.NoopPublisher{}
	if cfg.Events.NATSURL != "" {
		nc, err := nats.Connect(cfg.Events.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to NATS")
		}
		defer func() {
			// корректно дренируем и закрываем NATS-соединение
			if err := nc.Drain(); err != nil {
				log.Error().Err(err).Msg("drain NATS connection")
			}
			nc.Close()
		}()
		events = eventlog.NewNATSPublisher(nc, cfg.Events.Subject)
	} else {
		log.Info().Msg("NATS_URL is empty, project events are not published")
	}

	srv := service.NewProjectsService(repo, events, log)

	// настраиваем HTTP маршруты и middleware
	r := mux.NewRouter()
	r.Use(externalHttp.LoggingMiddleware(log))
	r.Use(externalHttp.MetricsMiddleware)
	h := externalHttp.NewHandler(srv, pinger, log)
	h.RegisterRoutes(r)

	cors, err := externalHttp.NewCORS(cfg.Server.CORSOriginPattern)
	if err != nil {
		log.Fatal().Err(err).Msg("configure CORS")
	}

	addr := ":" + cfg.Server.Port
	srvHttp := &http.Server{Addr: addr, Handler: cors(r)}
	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("starting server")
		if err := srvHttp.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// ожидаем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srvHttp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return
	}
	log.Info().Msg("server exited properly")
}

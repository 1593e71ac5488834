package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/ClickHouse/clickhouse-go"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"ProjectsAPI/internal/config"
	"ProjectsAPI/internal/consumer"
	"ProjectsAPI/internal/migrations"
	"ProjectsAPI/internal/repository"
	"ProjectsAPI/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(os.Stderr, cfg.App.LogLevel, cfg.App.Environment).With().Str("component", "consumer").Logger()
	if cfg.Events.NATSURL == "" || cfg.Events.ClickhouseDSN == "" {
		log.Fatal().Msg("NATS_URL and CLICKHOUSE_DSN are required")
	}

	// Подключаемся к NATS
	nc, err := nats.Connect(cfg.Events.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to NATS")
	}
	defer nc.Close()

	// Подключаемся к ClickHouse
	db, err := sql.Open("clickhouse", cfg.Events.ClickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open ClickHouse")
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping ClickHouse")
	}

	// Применяем миграции ClickHouse отдельным соединением
	migrateDB, err := sql.Open("clickhouse", cfg.Events.ClickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open ClickHouse for migrations")
	}
	if err := migrations.Up(migrateDB, migrations.TargetClickhouse, cfg.Events.ClickhouseMigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("apply ClickHouse migrations")
	}
	_ = migrateDB.Close()

	// Создаём репозиторий и консьюмера
	repo := repository.NewClickhouseRepo(db)
	cons := consumer.NewConsumer(repo, cfg.Events.BatchSize, log)

	// HTTP-сервер для healthz и readyz
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !nc.IsConnected() || db.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	healthSrv := &http.Server{Addr: ":" + cfg.Events.ConsumerPort, Handler: mux}
	go func() {
		log.Info().Str("port", cfg.Events.ConsumerPort).Msg("starting health server")
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health server failed")
		}
	}()

	// Подписываемся на тему NATS
	sub, err := nc.Subscribe(cfg.Events.Subject, func(msg *nats.Msg) {
		if err := cons.HandleMessage(context.Background(), msg.Data); err != nil {
			log.Error().Err(err).Msg("failed to handle message")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("subject", cfg.Events.Subject).Msg("subscribe")
	}

	// Ждём сигнала завершения
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down consumer")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("health server shutdown failed")
	}

	// Дожидаемся обработки полученных сообщений и сбрасываем оставшиеся события
	if err := cons.Shutdown(ctx, sub); err != nil {
		log.Error().Err(err).Msg("failed to stop consumer")
	}
}

// Package gymaccessbroker собирает брокер соединений: хранилище, кеш,
// шифрование шаблонов, протокольный автомат и HTTP-сервер.
package gymaccessbroker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/santiagoe16/gym-access-broker/internal/broker"
	"github.com/santiagoe16/gym-access-broker/internal/cache"
	"github.com/santiagoe16/gym-access-broker/internal/config"
	"github.com/santiagoe16/gym-access-broker/internal/crypto"
	"github.com/santiagoe16/gym-access-broker/internal/events"
	"github.com/santiagoe16/gym-access-broker/internal/lib/jwt"
	"github.com/santiagoe16/gym-access-broker/internal/migrations"
	"github.com/santiagoe16/gym-access-broker/internal/services/auth"
	"github.com/santiagoe16/gym-access-broker/internal/services/directory"
	"github.com/santiagoe16/gym-access-broker/internal/storage"
)

// App инкапсулирует HTTP-сервер брокера и его внешние соединения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	amqp   *amqp.Connection
}

// New инициализирует все зависимости брокера и готовит HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	cipher, err := crypto.New(cfg.Fingerprint.SecretKey)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	authService := auth.NewService(db, jwtMaker, logger)
	directoryService := directory.NewService(db, cacheRedis, logger)

	// пустой URL отключает публикацию событий
	var amqpConn *amqp.Connection
	var eventPub broker.EventPublisher
	if cfg.AMQPConnection.URL != "" {
		amqpConn, err = events.Connect(cfg.AMQPConnection.URL, cfg.AMQPConnection.MaxRetries, cfg.AMQPConnection.RetryDelay)
		if err != nil {
			return nil, err
		}
		publisher, err := events.NewPublisher(amqpConn, events.DefaultQueues())
		if err != nil {
			return nil, err
		}
		eventPub = publisher
	}

	metrics := broker.NewMetrics(prometheus.DefaultRegisterer)
	registry := broker.NewRegistry(metrics)
	dispatcher := broker.NewDispatcher(logger, registry, authService, directoryService, db, cipher, eventPub, metrics)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, dispatcher, authService, directoryService, jwtMaker)

	// тайм-ауты запросов разорвали бы долгоживущие дуплексные соединения,
	// поэтому ограничивается только чтение заголовков и простой
	srv := &http.Server{
		Addr:              cfg.AddressHTTP,
		Handler:           router,
		ReadHeaderTimeout: cfg.TimeoutHTTP,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.amqp != nil {
			_ = a.amqp.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/omok-backend/internal/config"
	"github.com/rocketscienceinc/omok-backend/internal/metrics"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
	"github.com/rocketscienceinc/omok-backend/internal/repository"
	"github.com/rocketscienceinc/omok-backend/internal/repository/storage"
	"github.com/rocketscienceinc/omok-backend/internal/room"
	"github.com/rocketscienceinc/omok-backend/internal/usecase"
	"github.com/rocketscienceinc/omok-backend/transport/rest"
	"github.com/rocketscienceinc/omok-backend/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     conf.Redis.GetRedisAddr(),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	meter := metrics.New(registry)

	broadcaster := protocol.NewBroadcaster(logger, meter)
	directory := room.NewDirectory(logger, room.Settings{
		CountdownFrom: conf.Game.CountdownFrom,
		TickInterval:  conf.Game.TickInterval,
		TurnTimeout:   conf.Game.TurnTimeout,
	}, broadcaster)

	roomService := usecase.NewRoomService(
		logger,
		directory,
		broadcaster,
		repository.NewRecordRepository(redisStorage.Connection),
		repository.NewProfileRepository(redisStorage.Connection),
		meter,
	)

	wsServer := websocket.New(logger, roomService, websocket.Options{
		ReadLimit:    conf.WebSocket.ReadLimit,
		WriteTimeout: conf.WebSocket.WriteTimeout,
		PingPeriod:   conf.WebSocket.PingPeriod,
		PongWait:     conf.WebSocket.PongWait(),
		SendBuffer:   conf.Game.SendBuffer,
	})

	router := rest.NewRouter(logger, roomService, wsServer.HandleGame, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := rest.NewServer(conf.HTTPPort, router)

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := srv.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	// hijacked sockets are not tracked by http.Server
	if err = wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("websocket shutdown failed", "error", err)
	}

	roomService.Wait()

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Nearby/internal/adapters/http"
	"github.com/dkeye/Nearby/internal/adapters/auth"
	"github.com/dkeye/Nearby/internal/adapters/mq"
	wsignal "github.com/dkeye/Nearby/internal/adapters/signal"
	"github.com/dkeye/Nearby/internal/adapters/store"
	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/config"
	"github.com/dkeye/Nearby/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg config.LogConfig) {
	if !cfg.Pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(store.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           cfg.Log.Level == "debug",
	})
	if err != nil {
		return err
	}
	defer store.Close(db)
	gs := store.NewGormStore(db)

	var rooms core.RoomProvider = gs
	if cfg.Redis.Enabled {
		cache, err := store.NewRedisRoomCache(store.RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return err
		}
		defer cache.Close()
		rooms = store.NewCachedRoomProvider(gs, cache, cfg.Redis.TTL)
	}

	var verifier core.Verifier = gs
	if cfg.Auth.Mode == "jwt" {
		verifier = auth.NewJWTVerifier(cfg.Auth.JWTSecret, "")
	}

	var events core.EventPublisher = mq.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := mq.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		events = kp
	}

	var policy app.Policy = app.SimplePolicy{}
	if cfg.Server.Backpressure == "drop" {
		policy = app.LenientPolicy{}
	}
	reg := app.NewRegistry(policy, nil)
	members := app.NewMembership()
	tracker := app.NewTracker(app.TrackerConfig{
		ThresholdMeters:  cfg.Proximity.ThresholdMeters,
		SweepInterval:    cfg.Proximity.SweepInterval,
		PairStaleness:    cfg.Proximity.PairStaleness,
		HistoryInterval:  cfg.Proximity.HistoryInterval,
		HistoryRetention: cfg.Proximity.HistoryRetention,
		HistoryLimit:     cfg.Proximity.HistoryLimit,
	})
	persister := app.NewPersister(cfg.Persist.Workers, cfg.Persist.QueueSize, cfg.Persist.Timeout)

	o := orch.New(orch.Deps{
		Registry:   reg,
		Membership: members,
		Tracker:    tracker,
		Broadcast:  app.NewBroadcaster(reg, members),
		Persist:    persister,
		Limiter:    app.NewRateLimiter(cfg.Chat.RatePerSecond, cfg.Chat.Burst),
		Verifier:   verifier,
		Store:      gs,
		Rooms:      rooms,
		Friends:    gs,
		Events:     events,
	}, orch.Config{
		RecentMessages:  cfg.Chat.RecentMessages,
		LookupTimeout:   cfg.Rooms.LookupTimeout,
		MaxMessageLen:   cfg.Chat.MaxLength,
		RejoinOnConnect: cfg.Rooms.Rejoin,
	})

	ws := wsignal.NewSignalWSController(o, wsignal.Options{
		ReadLimit:  cfg.Server.ReadLimit,
		PongWait:   cfg.Server.PongWait,
		PingPeriod: cfg.Server.PingPeriod,
		WriteWait:  cfg.Server.WriteWait,
		SendBuffer: cfg.Server.SendBuffer,
	})
	guard := router.Guard{Verifier: verifier, Admins: cfg.Auth.Admins, Timeout: cfg.Rooms.LookupTimeout}
	r := router.SetupRouter(ctx, &cfg.Server, guard, o, ws)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Nearby server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return tracker.Run(gctx)
	})
	g.Go(func() error {
		return pruneHistory(gctx, gs, cfg.Proximity.HistoryInterval, cfg.Proximity.HistoryRetention)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		o.Shutdown()
		persister.Close()
		return events.Close()
	})
	return g.Wait()
}

// pruneHistory trims the stored location history on the same cadence as
// the in-memory sweep.
func pruneHistory(ctx context.Context, gs *store.GormStore, every, retention time.Duration) error {
	if every <= 0 || retention <= 0 {
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := gs.PruneHistory(ctx, time.Now().Add(-retention))
			if err != nil {
				log.Error().Err(err).Str("module", "store").Msg("prune location history")
				continue
			}
			log.Info().Str("module", "store").Int64("rows", n).Msg("location history pruned")
		}
	}
}

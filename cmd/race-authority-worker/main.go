package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/authority"
	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/escrow-service/cache"
	"github.com/radieske/racers-escrow/internal/escrow-service/repo"
	sharedcache "github.com/radieske/racers-escrow/internal/shared/cache"
	"github.com/radieske/racers-escrow/internal/shared/config"
	"github.com/radieske/racers-escrow/internal/shared/db"
	"github.com/radieske/racers-escrow/internal/shared/logger"
	sharedmetrics "github.com/radieske/racers-escrow/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	program, err := escrow.ParsePubkey(cfg.ProgramID)
	if err != nil {
		log.Fatal("invalid program id", zap.Error(err))
	}
	authorityKey, err := escrow.ParsePubkey(cfg.AuthorityKey)
	if err != nil {
		log.Fatal("invalid AUTHORITY_KEY", zap.Error(err))
	}

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// o worker altera corridas direto no store; invalida o mesmo cache do escrow-service
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	store := repo.NewPostgres(pg)
	engine := escrow.NewEngine(store, escrow.NewProgramLocator(program),
		escrow.WithLogger(log),
		escrow.WithNotifier(cache.New(rdb, cfg.RaceCacheTTL)),
	)

	races := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "race_authority_races_total", Help: "ciclos de corrida por resultado"}, []string{"result"})
	prometheus.MustRegister(races)

	sharedmetrics.StartMetricsServer(log, cfg.MetricsPort,
		sharedmetrics.Check{Name: "postgres", Fn: store.Ping},
	)

	runner := &authority.Runner{
		Log:           log,
		Races:         engine,
		Authority:     authorityKey,
		BettingWindow: cfg.BettingWindow,
		Countdown:     cfg.CountdownDelay,
		Duration:      cfg.RaceDuration,
		Settle:        cfg.SettleDelay,
		Racers:        cfg.Racers,
		OnRace:        func(result string) { races.WithLabelValues(result).Inc() },
	}

	log.Info("race-authority started",
		zap.String("authority", authorityKey.String()),
		zap.Duration("duration", cfg.RaceDuration),
		zap.Int("racers", cfg.Racers),
	)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("runner stopped with error", zap.Error(err))
	}
	log.Info("race-authority stopped")
}

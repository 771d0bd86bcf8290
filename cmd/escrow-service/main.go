package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/escrow-service/cache"
	ehttp "github.com/radieske/racers-escrow/internal/escrow-service/http"
	"github.com/radieske/racers-escrow/internal/escrow-service/metrics"
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

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	program, err := escrow.ParsePubkey(cfg.ProgramID)
	if err != nil {
		log.Fatal("invalid program id", zap.Error(err))
	}

	// Postgres guarda corridas, apostas, perfis, saldos e o outbox
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// Redis: cache de leitura das corridas
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	raceCache := cache.New(rdb, cfg.RaceCacheTTL)

	store := repo.NewPostgres(pg)
	engine := escrow.NewEngine(store, escrow.NewProgramLocator(program),
		escrow.WithLogger(log),
		escrow.WithNotifier(raceCache), // invalida o cache após cada commit
	)
	m := metrics.New(prometheus.DefaultRegisterer)
	api := ehttp.NewServer(log, engine, raceCache, m)

	metricsSrv := sharedmetrics.StartMetricsServer(log, cfg.MetricsPort,
		sharedmetrics.Check{Name: "postgres", Fn: store.Ping},
		sharedmetrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8083
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.String("program", program.String()))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

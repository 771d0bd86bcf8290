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
	"github.com/radieske/racers-escrow/internal/escrow-service/metrics"
	"github.com/radieske/racers-escrow/internal/escrow-service/repo"
	"github.com/radieske/racers-escrow/internal/shared/config"
	"github.com/radieske/racers-escrow/internal/shared/db"
	"github.com/radieske/racers-escrow/internal/shared/logger"
	sharedmetrics "github.com/radieske/racers-escrow/internal/shared/metrics"
	vhttp "github.com/radieske/racers-escrow/internal/vault-service/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Inicializa logger estruturado
	log, err := logger.New("vault-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "vault-service"), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	program, err := escrow.ParsePubkey(cfg.ProgramID)
	if err != nil {
		log.Fatal("invalid program id", zap.Error(err))
	}

	// Conexão com Postgres: o cofre divide o ledger de saldos com o escrow
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// Instancia store, engine e servidor HTTP do cofre
	store := repo.NewPostgres(pg)
	engine := escrow.NewEngine(store, escrow.NewProgramLocator(program), escrow.WithLogger(log))
	api := vhttp.NewServer(log, engine, metrics.New(prometheus.DefaultRegisterer))

	// Servidor de métricas e health check
	metricsSrv := sharedmetrics.StartMetricsServer(log, cfg.MetricsPort, // ex: 9098
		sharedmetrics.Check{Name: "postgres", Fn: store.Ping},
	)

	// Servidor HTTP público (API do cofre)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow-service/repo"
	"github.com/radieske/racers-escrow/internal/outbox-relay/publisher"
	"github.com/radieske/racers-escrow/internal/outbox-relay/relay"
	"github.com/radieske/racers-escrow/internal/shared/config"
	"github.com/radieske/racers-escrow/internal/shared/db"
	"github.com/radieske/racers-escrow/internal/shared/kafka"
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

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres: origem das notificações (outbox transacional)
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}
	outbox := repo.NewPostgres(pg)

	// Kafka producer: notificações e DLQ
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotifications)
	defer writer.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotificationsDLQ)
	defer dlqWriter.Close()

	// Métricas Prometheus do relay
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "outbox_relay_published_total", Help: "notificações publicadas"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "outbox_relay_failed_total", Help: "falhas de publicação"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "outbox_relay_dlq_total", Help: "notificações enviadas ao DLQ"})
	prometheus.MustRegister(published, failed, dead)

	sharedmetrics.StartMetricsServer(log, cfg.MetricsPort,
		sharedmetrics.Check{Name: "postgres", Fn: outbox.Ping},
	)

	r := &relay.Relay{
		Log:         log,
		Outbox:      outbox,
		Publisher:   publisher.NewKafkaPublisher(writer),
		DLQ:         publisher.NewKafkaPublisher(dlqWriter),
		BatchSize:   cfg.RelayBatchSize,
		Interval:    cfg.RelayPollInterval,
		MaxAttempts: cfg.RelayMaxAttempts,
		OnPublished: func() { published.Inc() },
		OnFailed:    func() { failed.Inc() },
		OnDead:      func() { dead.Inc() },
	}

	log.Info("outbox-relay started",
		zap.String("publish", cfg.TopicNotifications),
		zap.String("dlq", cfg.TopicNotificationsDLQ),
	)
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("relay stopped with error", zap.Error(err))
	}
	log.Info("outbox-relay stopped")
}

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

	"github.com/radieske/racers-escrow/internal/race-feed/cache"
	"github.com/radieske/racers-escrow/internal/race-feed/consumer"
	httpapi "github.com/radieske/racers-escrow/internal/race-feed/http"
	"github.com/radieske/racers-escrow/internal/race-feed/pubsub"
	"github.com/radieske/racers-escrow/internal/race-feed/ws"
	sharedcache "github.com/radieske/racers-escrow/internal/shared/cache"
	"github.com/radieske/racers-escrow/internal/shared/config"
	"github.com/radieske/racers-escrow/internal/shared/kafka"
	"github.com/radieske/racers-escrow/internal/shared/logger"
	sharedmetrics "github.com/radieske/racers-escrow/internal/shared/metrics"
)

// snapshots vivem enquanto houver notificações da corrida
const snapshotTTL = 30 * time.Minute

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

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()
	feedCache := cache.NewFeedCache(redisClient, snapshotTTL)

	// Configura o consumer Kafka (consumer group race-feed)
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicNotifications, "race-feed")
	defer reader.Close()

	// Métricas Prometheus para monitoramento do feed
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "race_feed_messages_consumed_total", Help: "mensagens consumidas"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "race_feed_cache_sets_total", Help: "snapshots gravados"})
	broadcast := prometheus.NewCounter(prometheus.CounterOpts{Name: "race_feed_broadcasts_total", Help: "atualizações publicadas no pubsub"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "race_feed_errors_total", Help: "erros por estágio"}, []string{"stage"})
	wsConns := prometheus.NewGauge(prometheus.GaugeOpts{Name: "race_feed_ws_connections", Help: "conexões websocket abertas"})
	prometheus.MustRegister(consumed, cached, broadcast, errorsBy, wsConns)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Cache:       feedCache,
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		OnConsumed:  func() { consumed.Inc() },
		OnCached:    func() { cached.Inc() },
		OnBroadcast: func() { broadcast.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Hub WebSocket alimentado pelo Redis Pub/Sub
	hub := ws.NewHub(func(*http.Request) bool { return true })
	hub.OnConnect = wsConns.Inc
	hub.OnDisconnect = wsConns.Dec
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub)

	api := &httpapi.API{Log: log, Cache: feedCache, WS: hub.HandleWS}
	apiSrv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: api.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("feed api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	sharedmetrics.StartMetricsServer(log, cfg.MetricsPort,
		sharedmetrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	log.Info("race-feed started", zap.String("consume", cfg.TopicNotifications), zap.String("channel", cfg.RedisPubSubChannel))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	log.Info("race-feed stopped")
}

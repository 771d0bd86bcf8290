package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ctopics "github.com/radieske/racers-escrow/pkg/contracts/topics"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "escrow-service")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "8083", cfg.HTTPPort)
	require.Equal(t, "9099", cfg.MetricsPort)
	require.Equal(t, ctopics.EscrowNotifications, cfg.TopicNotifications)
	require.Equal(t, ctopics.EscrowNotificationsDLQ, cfg.TopicNotificationsDLQ)
	require.Equal(t, ctopics.RaceFeedBroadcast, cfg.RedisPubSubChannel)
	require.Equal(t, 8, cfg.Racers)
	require.Equal(t, 500*time.Millisecond, cfg.RelayPollInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "outbox-relay-worker")
	t.Setenv("KAFKA_TOPIC_NOTIFICATIONS", "custom")
	t.Setenv("RELAY_BATCH_SIZE", "7")
	t.Setenv("RACE_DURATION", "45s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "custom", cfg.TopicNotifications)
	require.Equal(t, 7, cfg.RelayBatchSize)
	require.Equal(t, 45*time.Second, cfg.RaceDuration)
	require.Empty(t, cfg.HTTPPort)
	require.Equal(t, "9096", cfg.MetricsPort)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("RELAY_BATCH_SIZE", "many")

	_, err := Load()
	require.Error(t, err)
}

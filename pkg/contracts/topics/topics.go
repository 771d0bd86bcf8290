package topics

const (
	// Notificações do escrow (outbox -> kafka)
	EscrowNotifications    = "escrow_notifications"
	EscrowNotificationsDLQ = "escrow_notifications_dlq"

	// Canal Redis Pub/Sub usado pelo feed ao vivo
	RaceFeedBroadcast = "race_feed_broadcast"
)

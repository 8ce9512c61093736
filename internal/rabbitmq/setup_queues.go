package rabbitmq

// Ключи маршрутизации событий.
const (
	RoutingWelcome      = "welcome"
	RoutingCancelled    = "cancelled"
	RoutingAbandoned    = "abandoned"
	RoutingVerification = "verification"
)

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые читает воркер уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.welcome", RoutingKey: RoutingWelcome},
		{QueueName: "notifications.cancelled", RoutingKey: RoutingCancelled},
		{QueueName: "notifications.abandoned", RoutingKey: RoutingAbandoned},
		{QueueName: "notifications.verification", RoutingKey: RoutingVerification},
	}
}

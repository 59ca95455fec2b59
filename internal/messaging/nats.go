package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

type Config struct {
	URL       string
	ClusterID string
	ClientID  string
}

type NATSClient struct {
	conn stan.Conn
}

// NewNATSClient connects to NATS Streaming. The client id gets a random
// suffix so api and consumer replicas never collide.
func NewNATSClient(cfg Config) (*NATSClient, error) {
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, clientID,
		stan.NatsURL(cfg.URL),
		stan.ConnectWait(10*time.Second),
		stan.Pings(10, 5),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			slog.Error("NATS connection lost", "reason", reason)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("Connected to NATS Streaming", "url", cfg.URL, "cluster_id", cfg.ClusterID, "client_id", clientID)

	return &NATSClient{conn: conn}, nil
}

// Publish marshals data as JSON and publishes it on the subject.
func (nc *NATSClient) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}

// SubscribeQueue creates a durable queue subscription with manual acks.
// Unacked messages are redelivered after the ack wait, which is what
// makes fulfillment at-least-once.
func (nc *NATSClient) SubscribeQueue(subject, queueGroup string, handler stan.MsgHandler) (stan.Subscription, error) {
	sub, err := nc.conn.QueueSubscribe(subject, queueGroup, handler,
		stan.DurableName(queueGroup+"-durable"),
		stan.SetManualAckMode(),
		stan.AckWait(30*time.Second),
		stan.MaxInflight(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	slog.Info("Subscribed to NATS subject", "subject", subject, "queue_group", queueGroup)

	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc.conn == nil {
		return nil
	}
	return nc.conn.Close()
}

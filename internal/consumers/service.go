package consumers

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/stan.go"

	"tsirk/internal/cache"
	"tsirk/internal/config"
	"tsirk/internal/database"
	"tsirk/internal/external"
	"tsirk/internal/logger"
	"tsirk/internal/messaging"
	"tsirk/internal/models"
	"tsirk/internal/pricing"
	"tsirk/internal/repository"
	"tsirk/internal/service"
)

const (
	fulfillmentQueueGroup = "fulfillment"

	reminderInterval = 6 * time.Hour
	reminderMinAge   = 24 * time.Hour
)

// ConsumerService runs the fulfillment pipeline off NATS instead of the
// in-process queue the api binary uses by default.
type ConsumerService struct {
	db           *database.DB
	nats         *messaging.NATSClient
	valkeyClient *cache.ValkeyClient
	handlers     *Handlers
	reminder     *VerificationReminder
	subs         []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	var valkeyClient *cache.ValkeyClient
	if cfg.Cache.Addr != "" {
		valkeyClient, err = cache.NewValkeyClient(cfg.Cache)
		if err != nil {
			logger.Get().Warn("Valkey unavailable, running without availability cache", "error", err)
			valkeyClient = nil
		}
	}

	repos := repository.NewRepositories(db)
	engine := pricing.NewEngine(cfg.Pricing)
	paymentClient := external.NewPaymentClient(cfg.Payment)
	artifactClient := external.NewArtifactClient(cfg.Artifacts)
	mailClient := external.NewMailClient(cfg.Mail)

	services := service.NewServices(repos, engine, paymentClient, artifactClient, mailClient,
		natsClient, valkeyClient, cfg.ShowCapacity, cfg.PublicURL)

	return &ConsumerService{
		db:           db,
		nats:         natsClient,
		valkeyClient: valkeyClient,
		handlers:     NewHandlers(services.Fulfillment),
		reminder:     NewVerificationReminder(repos.Codes, mailClient, reminderInterval, reminderMinAge),
	}, nil
}

// Start subscribes to the completion subject and starts background jobs.
func (cs *ConsumerService) Start() error {
	sub, err := cs.nats.SubscribeQueue(models.SubjectCheckoutCompleted, fulfillmentQueueGroup,
		cs.handlers.HandleCheckoutCompleted)
	if err != nil {
		return err
	}
	cs.subs = append(cs.subs, sub)

	cs.reminder.Start()
	return nil
}

// Shutdown unsubscribes and closes connections. In-flight messages that
// were not acked are redelivered to the next replica.
func (cs *ConsumerService) Shutdown(ctx context.Context) {
	cs.reminder.Stop()

	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			logger.Get().Error("Failed to close subscription", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		if err := cs.nats.Close(); err != nil {
			logger.Get().Error("Failed to close NATS connection", "error", err)
		}
		if cs.valkeyClient != nil {
			if err := cs.valkeyClient.Close(); err != nil {
				logger.Get().Error("Failed to close Valkey connection", "error", err)
			}
		}
		if err := cs.db.Close(); err != nil {
			logger.Get().Error("Failed to close database connection", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Get().Warn("Shutdown timed out")
	}
}

package service

import (
	"context"

	"tsirk/internal/cache"
	"tsirk/internal/external"
	"tsirk/internal/messaging"
	"tsirk/internal/models"
	"tsirk/internal/pricing"
	"tsirk/internal/repository"
)

// OrderStore is the order persistence the services need. The concrete
// implementation lives in internal/repository; tests use in-memory fakes.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetBySessionRef(ctx context.Context, sessionRef string) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Totals(ctx context.Context) (int, int64, error)
}

// CodeStore is the access code persistence the services need.
type CodeStore interface {
	Create(ctx context.Context, code *models.AccessCode) error
	GetByCode(ctx context.Context, code string) (*models.AccessCode, error)
	ListByOrder(ctx context.Context, orderID int64) ([]models.AccessCode, error)
	ListBySessionRef(ctx context.Context, sessionRef string) ([]models.AccessCode, error)
	Redeem(ctx context.Context, code string) (bool, error)
	RedeemOrder(ctx context.Context, orderID int64) (int, error)
	SetValidity(ctx context.Context, code string, valid bool) (bool, error)
	CountByShow(ctx context.Context, showID string) (int, error)
	CountsByShowCategory(ctx context.Context) ([]models.CodeCount, error)
	CountAll(ctx context.Context) (int, int, error)
	CountPendingVerification(ctx context.Context) (int, error)
}

// PaymentProvider is the hosted-checkout side of the payment gateway.
type PaymentProvider interface {
	CreateSession(ctx context.Context, req external.CreateSessionRequest) (*external.CheckoutSession, error)
	ListLineItems(ctx context.Context, sessionID string) ([]external.SessionLineItem, error)
}

// ArtifactRenderer renders the printable ticket for an access code.
type ArtifactRenderer interface {
	RenderTicket(ctx context.Context, req external.RenderTicketRequest) error
}

// Mailer sends the transactional mails around fulfillment.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, link string) error
	SendVerificationRequest(ctx context.Context, sessionRef, customerEmail string, items []external.UitPasItem) error
}

// EventPublisher publishes domain events; nil means events are skipped.
type EventPublisher interface {
	Publish(subject string, data any) error
}

type Services struct {
	Checkout    *CheckoutService
	Fulfillment *FulfillmentService
	Redemption  *RedemptionService
	Stats       *StatsService
}

func NewServices(repos *repository.Repositories, engine *pricing.Engine,
	paymentClient *external.PaymentClient, artifactClient *external.ArtifactClient,
	mailClient *external.MailClient, natsClient *messaging.NATSClient,
	valkeyClient *cache.ValkeyClient, capacity int, publicURL string) *Services {

	var publisher EventPublisher
	if natsClient != nil {
		publisher = natsClient
	}

	return &Services{
		Checkout:    NewCheckoutService(engine, repos.Codes, paymentClient, valkeyClient, capacity, publicURL),
		Fulfillment: NewFulfillmentService(repos.Orders, repos.Codes, paymentClient, artifactClient, mailClient, publisher, engine, valkeyClient, publicURL),
		Redemption:  NewRedemptionService(repos.Codes, repos.Orders),
		Stats:       NewStatsService(repos.Orders, repos.Codes),
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tsirk/internal/errors"
	"tsirk/internal/external"
	"tsirk/internal/models"
)

type fulfillmentFixture struct {
	svc       *FulfillmentService
	orders    *fakeOrderStore
	codes     *fakeCodeStore
	payments  *fakePayments
	artifacts *fakeArtifacts
	mailer    *fakeMailer
	publisher *fakePublisher
}

func newFulfillmentFixture() *fulfillmentFixture {
	orders := newFakeOrderStore()
	codes := newFakeCodeStore(orders)
	payments := newFakePayments()
	artifacts := &fakeArtifacts{}
	mailer := &fakeMailer{}
	publisher := &fakePublisher{}

	svc := NewFulfillmentService(orders, codes, payments, artifacts, mailer, publisher,
		newTestEngine(), nil, "https://tickets.tsirk.be")

	return &fulfillmentFixture{svc, orders, codes, payments, artifacts, mailer, publisher}
}

func completedEvent(sessionRef string) *models.CheckoutCompletedEvent {
	return &models.CheckoutCompletedEvent{
		SessionRef:    sessionRef,
		Status:        "complete",
		PaymentStatus: "paid",
		Email:         "koper@example.com",
		AmountTotal:   1760,
	}
}

func sessionLineItems() []external.SessionLineItem {
	return []external.SessionLineItem{
		{
			Name: "GROOT (>12j) - SHOW 1 (13u30)", UnitAmount: 800, Quantity: 2,
			Metadata: map[string]string{
				external.MetadataShowID:   "s1",
				external.MetadataCategory: "adult",
				external.MetadataVariant:  "full",
			},
		},
		{
			Name: "KLEIN (-12j) [UiTPAS] - SHOW 1 (13u30)", UnitAmount: 120, Quantity: 1,
			Metadata: map[string]string{
				external.MetadataShowID:       "s1",
				external.MetadataCategory:     "child",
				external.MetadataVariant:      "uitpas",
				external.MetadataUitPasNumber: "1234567890123",
			},
		},
	}
}

func TestProcessIssuesCodesAndSideEffects(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()

	err := f.svc.Process(context.Background(), completedEvent("cs_1"))
	require.NoError(t, err)

	order, err := f.orders.GetBySessionRef(context.Background(), "cs_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "paid", order.PaymentStatus)
	require.NotNil(t, order.Email)
	assert.Equal(t, "koper@example.com", *order.Email)

	issued, err := f.codes.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, issued, 3)

	var uitpas, valid int
	for _, code := range issued {
		assert.Len(t, code.Code, 6)
		if code.UitPasNumber != nil {
			uitpas++
			assert.False(t, code.IsValid)
			assert.Equal(t, "1234567890123", *code.UitPasNumber)
			assert.Equal(t, "child", code.Category)
		} else {
			valid++
			assert.True(t, code.IsValid)
		}
	}
	assert.Equal(t, 1, uitpas)
	assert.Equal(t, 2, valid)

	// One artifact per code, on the right show.
	require.Len(t, f.artifacts.rendered, 3)
	assert.Equal(t, 1, f.artifacts.rendered[0].ShowNumber)
	assert.Equal(t, "13u30", f.artifacts.rendered[0].Time)

	require.Len(t, f.mailer.confirmations, 1)
	assert.Contains(t, f.mailer.confirmations[0], "session_id=cs_1")

	require.Len(t, f.mailer.verifications, 1)
	require.Len(t, f.mailer.verifications[0].items, 1)
	assert.Equal(t, "1234567890123", f.mailer.verifications[0].items[0].Number)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.SubjectOrderFulfilled, f.publisher.events[0].subject)
}

func TestProcessDiscardsRedeliveredEvent(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()

	require.NoError(t, f.svc.Process(context.Background(), completedEvent("cs_1")))
	require.NoError(t, f.svc.Process(context.Background(), completedEvent("cs_1")))

	total, _, err := f.codes.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	orderCount, _, err := f.orders.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, orderCount)

	// Side effects ran once.
	assert.Len(t, f.mailer.confirmations, 1)
	assert.Len(t, f.artifacts.rendered, 3)
}

func TestProcessDiscardsConcurrentDuplicate(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()
	f.orders.createErr = apperrors.ErrDuplicateOrder

	err := f.svc.Process(context.Background(), completedEvent("cs_1"))

	require.NoError(t, err)
	total, _, err := f.codes.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, f.mailer.confirmations)
}

func TestProcessAbortsBeforeOrderOnProviderFailure(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.listErr = errors.New("gateway unreachable")

	err := f.svc.Process(context.Background(), completedEvent("cs_1"))

	require.Error(t, err)
	order, getErr := f.orders.GetBySessionRef(context.Background(), "cs_1")
	require.NoError(t, getErr)
	assert.Nil(t, order, "a failed run must leave no order so redelivery can retry")
}

func TestProcessArtifactFailureIsNonFatal(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()
	f.artifacts.err = errors.New("renderer down")

	err := f.svc.Process(context.Background(), completedEvent("cs_1"))

	require.NoError(t, err)
	total, _, _ := f.codes.CountAll(context.Background())
	assert.Equal(t, 3, total)
	assert.Len(t, f.mailer.confirmations, 1)
}

func TestProcessMailFailureIsNonFatal(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()
	f.mailer.confirmErr = errors.New("mail api down")
	f.mailer.verifyErr = errors.New("mail api down")

	err := f.svc.Process(context.Background(), completedEvent("cs_1"))

	require.NoError(t, err)
	total, _, _ := f.codes.CountAll(context.Background())
	assert.Equal(t, 3, total)
}

func TestProcessWithoutEmailSkipsConfirmation(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()

	evt := completedEvent("cs_1")
	evt.Email = ""
	err := f.svc.Process(context.Background(), evt)

	require.NoError(t, err)
	assert.Empty(t, f.mailer.confirmations)
	// Staff still gets the verification mail, without a customer address.
	require.Len(t, f.mailer.verifications, 1)
	assert.Equal(t, "", f.mailer.verifications[0].customerEmail)
}

func TestProcessRetriesOnCodeCollision(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()
	f.codes.duplicateOnce = true

	err := f.svc.Process(context.Background(), completedEvent("cs_1"))

	require.NoError(t, err)
	total, _, _ := f.codes.CountAll(context.Background())
	assert.Equal(t, 3, total)
}

func TestTickets(t *testing.T) {
	f := newFulfillmentFixture()
	f.payments.lineItems["cs_1"] = sessionLineItems()

	codes, err := f.svc.Tickets(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Empty(t, codes, "no codes before fulfillment finishes")

	require.NoError(t, f.svc.Process(context.Background(), completedEvent("cs_1")))

	codes, err = f.svc.Tickets(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Len(t, codes, 3)
}

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

func newCheckoutFixture() (*CheckoutService, *fakeCodeStore, *fakePayments) {
	orders := newFakeOrderStore()
	codes := newFakeCodeStore(orders)
	payments := newFakePayments()
	svc := NewCheckoutService(newTestEngine(), codes, payments, nil, 250, "https://tickets.tsirk.be")
	return svc, codes, payments
}

func TestCreateSessionReturnsProviderSession(t *testing.T) {
	svc, _, payments := newCheckoutFixture()

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{"s1": {Adult: 2}},
	}
	sessionID, err := svc.CreateSession(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", sessionID)

	require.NotNil(t, payments.lastRequest)
	require.Len(t, payments.lastRequest.LineItems, 1)
	item := payments.lastRequest.LineItems[0]
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, int64(800), item.UnitAmount)
	assert.Equal(t, "s1", item.Metadata[external.MetadataShowID])
	assert.Equal(t, "adult", item.Metadata[external.MetadataCategory])
	assert.Equal(t, "full", item.Metadata[external.MetadataVariant])
	assert.Contains(t, payments.lastRequest.SuccessURL, "session_id=")
}

func TestCreateSessionCarriesUitPasMetadata(t *testing.T) {
	svc, _, payments := newCheckoutFixture()

	req := &models.CreateCheckoutRequest{
		Shows:  map[string]models.TicketCounts{"s1": {Adult: 1}},
		UitPas: []models.UitPasClaim{{Number: "1234567890123", Category: "adult"}},
	}
	_, err := svc.CreateSession(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, payments.lastRequest.LineItems, 1)
	item := payments.lastRequest.LineItems[0]
	assert.Equal(t, int64(160), item.UnitAmount)
	assert.Equal(t, "uitpas", item.Metadata[external.MetadataVariant])
	assert.Equal(t, "1234567890123", item.Metadata[external.MetadataUitPasNumber])
}

func TestCreateSessionRejectsEmptyCart(t *testing.T) {
	svc, _, _ := newCheckoutFixture()

	cases := []*models.CreateCheckoutRequest{
		{},
		{Shows: map[string]models.TicketCounts{}},
		{Shows: map[string]models.TicketCounts{"s1": {Adult: 0, Child: 0}}},
	}
	for _, req := range cases {
		_, err := svc.CreateSession(context.Background(), req)

		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
	}
}

func TestCreateSessionRejectsNegativeQuantity(t *testing.T) {
	svc, _, _ := newCheckoutFixture()

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{"s1": {Adult: -1}},
	}
	_, err := svc.CreateSession(context.Background(), req)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateSessionRejectsUnknownShow(t *testing.T) {
	svc, _, _ := newCheckoutFixture()

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{"s9": {Adult: 1}},
	}
	_, err := svc.CreateSession(context.Background(), req)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "s9")
}

func TestCreateSessionRejectsMalformedClaims(t *testing.T) {
	svc, _, _ := newCheckoutFixture()

	cases := []models.UitPasClaim{
		{Number: "123", Category: "adult"},
		{Number: "12345678901ab", Category: "adult"},
		{Number: "1234567890123", Category: "senior"},
	}
	for _, claim := range cases {
		req := &models.CreateCheckoutRequest{
			Shows:  map[string]models.TicketCounts{"s1": {Adult: 1}},
			UitPas: []models.UitPasClaim{claim},
		}
		_, err := svc.CreateSession(context.Background(), req)

		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
	}
}

func TestCreateSessionRejectsDuplicateClaims(t *testing.T) {
	svc, _, _ := newCheckoutFixture()

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{"s1": {Adult: 2}},
		UitPas: []models.UitPasClaim{
			{Number: "1234567890123", Category: "adult"},
			{Number: "1234567890123", Category: "adult"},
		},
	}
	_, err := svc.CreateSession(context.Background(), req)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "duplicate")
}

func TestCreateSessionRejectsOverCapacity(t *testing.T) {
	svc, codes, _ := newCheckoutFixture()
	codes.soldByShow["s2"] = 249

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{
			"s1": {Adult: 1},
			"s2": {Adult: 2},
		},
	}
	_, err := svc.CreateSession(context.Background(), req)

	var capacityErr *apperrors.CapacityError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, "Circusvoorstelling - Show 2", capacityErr.ShowName)
	assert.Equal(t, 2, capacityErr.Requested)
	assert.Equal(t, 1, capacityErr.Remaining)
}

func TestCreateSessionAllowsExactFit(t *testing.T) {
	svc, codes, _ := newCheckoutFixture()
	codes.soldByShow["s1"] = 248

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{"s1": {Adult: 2}},
	}
	_, err := svc.CreateSession(context.Background(), req)

	require.NoError(t, err)
}

func TestCreateSessionWrapsProviderFailure(t *testing.T) {
	svc, _, payments := newCheckoutFixture()
	payments.createErr = errors.New("gateway unreachable")

	req := &models.CreateCheckoutRequest{
		Shows: map[string]models.TicketCounts{"s1": {Adult: 1}},
	}
	_, err := svc.CreateSession(context.Background(), req)

	var providerErr *apperrors.ProviderError
	require.ErrorAs(t, err, &providerErr)
}

func TestAvailability(t *testing.T) {
	svc, codes, _ := newCheckoutFixture()
	codes.soldByShow["s1"] = 10
	codes.soldByShow["s3"] = 250

	availability, err := svc.Availability(context.Background())

	require.NoError(t, err)
	require.Len(t, availability, 3)
	assert.Equal(t, 240, availability[0].Remaining)
	assert.Equal(t, 250, availability[1].Remaining)
	assert.Equal(t, 0, availability[2].Remaining)
}

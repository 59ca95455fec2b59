package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tsirk/internal/errors"
	"tsirk/internal/models"
)

func TestNormalizeScan(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare code", "ABCDEF", "ABCDEF"},
		{"lower case", "abcdef", "ABCDEF"},
		{"whitespace", "  abcdef \n", "ABCDEF"},
		{"query url", "https://tickets.tsirk.be/ticket?id=ABCDEF", "ABCDEF"},
		{"path url", "https://tickets.tsirk.be/ticket/ABCDEF", "ABCDEF"},
		{"trailing query", "ABCDEF?utm=1", "ABCDEF"},
		{"scanner overread", "xxABCDEF", "ABCDEF"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeScan(tc.raw))
		})
	}
}

func newRedemptionFixture() (*RedemptionService, *fakeOrderStore, *fakeCodeStore) {
	orders := newFakeOrderStore()
	codes := newFakeCodeStore(orders)
	return NewRedemptionService(codes, orders), orders, codes
}

// seedGroup stores an order with one valid, one used and one invalid code.
func seedGroup(t *testing.T, orders *fakeOrderStore, codes *fakeCodeStore) {
	t.Helper()

	email := "koper@example.com"
	order := &models.Order{SessionRef: "cs_1", Status: "complete", PaymentStatus: "paid", Email: &email}
	require.NoError(t, orders.Create(context.Background(), order))

	used := time.Now().Add(-time.Hour)
	number := "1234567890123"
	codes.add(models.AccessCode{Code: "AAAAAA", IsValid: true, ShowID: "s1", Category: "adult", Variant: "full", Label: "GROOT (>12j) - SHOW 1 (13u30)", OrderID: order.ID})
	codes.add(models.AccessCode{Code: "BBBBBB", IsValid: true, RedeemedAt: &used, ShowID: "s1", Category: "adult", Variant: "full", Label: "GROOT (>12j) - SHOW 1 (13u30)", OrderID: order.ID})
	codes.add(models.AccessCode{Code: "CCCCCC", IsValid: false, ShowID: "s1", Category: "child", Variant: "uitpas", Label: "KLEIN (-12j) [UiTPAS] - SHOW 1 (13u30)", UitPasNumber: &number, OrderID: order.ID})
}

func TestLookupReturnsBookingGroup(t *testing.T) {
	svc, orders, codes := newRedemptionFixture()
	seedGroup(t, orders, codes)

	view, err := svc.Lookup(context.Background(), "aaaaaa")

	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", view.Scanned.Code)
	assert.Equal(t, models.TicketStatusValid, view.Scanned.Status)
	assert.Equal(t, "koper@example.com", view.Email)
	require.Len(t, view.Tickets, 3)
	assert.Equal(t, models.TicketStatusValid, view.Tickets[0].Status)
	assert.Equal(t, models.TicketStatusUsed, view.Tickets[1].Status)
	assert.Equal(t, models.TicketStatusInvalid, view.Tickets[2].Status)
	assert.Equal(t, "1234567890123", view.Tickets[2].UitPasNumber)
	assert.Equal(t, 1, view.ValidCount)
}

func TestLookupUnknownCode(t *testing.T) {
	svc, _, _ := newRedemptionFixture()

	_, err := svc.Lookup(context.Background(), "ZZZZZZ")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckInOneIsIdempotent(t *testing.T) {
	svc, orders, codes := newRedemptionFixture()
	seedGroup(t, orders, codes)

	first, err := svc.CheckInOne(context.Background(), "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, 1, first.CheckedIn)

	code, err := codes.GetByCode(context.Background(), "AAAAAA")
	require.NoError(t, err)
	require.NotNil(t, code.RedeemedAt)
	stamp := *code.RedeemedAt

	second, err := svc.CheckInOne(context.Background(), "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, 0, second.CheckedIn)
	assert.Equal(t, "Ticket was already used", second.Message)

	code, err = codes.GetByCode(context.Background(), "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, stamp, *code.RedeemedAt, "re-scan must not move the redemption time")
}

func TestCheckInOneInvalidCodeIsNoOp(t *testing.T) {
	svc, orders, codes := newRedemptionFixture()
	seedGroup(t, orders, codes)

	result, err := svc.CheckInOne(context.Background(), "CCCCCC")

	require.NoError(t, err)
	assert.Equal(t, 0, result.CheckedIn)
	assert.Equal(t, "Ticket is not valid", result.Message)

	code, err := codes.GetByCode(context.Background(), "CCCCCC")
	require.NoError(t, err)
	assert.Nil(t, code.RedeemedAt)
}

func TestCheckInGroupSkipsUsedAndInvalid(t *testing.T) {
	svc, orders, codes := newRedemptionFixture()
	seedGroup(t, orders, codes)

	result, err := svc.CheckInGroup(context.Background(), "BBBBBB")
	require.NoError(t, err)
	assert.Equal(t, 1, result.CheckedIn)

	again, err := svc.CheckInGroup(context.Background(), "BBBBBB")
	require.NoError(t, err)
	assert.Equal(t, 0, again.CheckedIn)
}

func TestCheckInNormalizesScans(t *testing.T) {
	svc, orders, codes := newRedemptionFixture()
	seedGroup(t, orders, codes)

	result, err := svc.CheckInOne(context.Background(), "https://tickets.tsirk.be/ticket?id=aaaaaa")

	require.NoError(t, err)
	assert.Equal(t, 1, result.CheckedIn)
}

func TestSetValidity(t *testing.T) {
	svc, orders, codes := newRedemptionFixture()
	seedGroup(t, orders, codes)

	require.NoError(t, svc.SetValidity(context.Background(), "cccccc", true))

	code, err := codes.GetByCode(context.Background(), "CCCCCC")
	require.NoError(t, err)
	assert.True(t, code.IsValid)

	err = svc.SetValidity(context.Background(), "ZZZZZZ", true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

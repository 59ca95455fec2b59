package service

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "tsirk/internal/errors"
	"tsirk/internal/external"
	"tsirk/internal/models"
	"tsirk/internal/pricing"
)

func newTestEngine() *pricing.Engine {
	return pricing.NewEngine(pricing.Config{
		Shows: []pricing.Show{
			{ID: "s1", Name: "Circusvoorstelling - Show 1", Date: "28/03/2026", Time: "13u30", Number: 1},
			{ID: "s2", Name: "Circusvoorstelling - Show 2", Date: "28/03/2026", Time: "18u30", Number: 2},
			{ID: "s3", Name: "Circusvoorstelling - Show 3", Date: "29/03/2026", Time: "10u00", Number: 3},
		},
		Prices: pricing.PriceTable{AdultCents: 800, ChildCents: 600, VolumeCents: 400},
	})
}

type fakeOrderStore struct {
	mu        sync.Mutex
	byRef     map[string]*models.Order
	nextID    int64
	createErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{byRef: map[string]*models.Order{}}
}

func (f *fakeOrderStore) Create(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byRef[order.SessionRef]; ok {
		return apperrors.ErrDuplicateOrder
	}

	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	stored := *order
	f.byRef[order.SessionRef] = &stored
	return nil
}

func (f *fakeOrderStore) GetBySessionRef(_ context.Context, sessionRef string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.byRef[sessionRef]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, order := range f.byRef {
		if order.ID == id {
			copied := *order
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderStore) Totals(_ context.Context) (int, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var revenue int64
	for _, order := range f.byRef {
		revenue += order.AmountTotal
	}
	return len(f.byRef), revenue, nil
}

type fakeCodeStore struct {
	mu            sync.Mutex
	byCode        map[string]*models.AccessCode
	nextID        int64
	soldByShow    map[string]int
	orders        *fakeOrderStore
	duplicateOnce bool
}

func newFakeCodeStore(orders *fakeOrderStore) *fakeCodeStore {
	return &fakeCodeStore{
		byCode:     map[string]*models.AccessCode{},
		soldByShow: map[string]int{},
		orders:     orders,
	}
}

func (f *fakeCodeStore) add(code models.AccessCode) *models.AccessCode {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	code.ID = f.nextID
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	f.byCode[code.Code] = &code
	return &code
}

func (f *fakeCodeStore) Create(_ context.Context, code *models.AccessCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.duplicateOnce {
		f.duplicateOnce = false
		return apperrors.ErrDuplicateCode
	}
	if _, ok := f.byCode[code.Code]; ok {
		return apperrors.ErrDuplicateCode
	}

	f.nextID++
	code.ID = f.nextID
	code.CreatedAt = time.Now()
	stored := *code
	f.byCode[code.Code] = &stored
	return nil
}

func (f *fakeCodeStore) GetByCode(_ context.Context, code string) (*models.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	found, ok := f.byCode[code]
	if !ok {
		return nil, nil
	}
	copied := *found
	return &copied, nil
}

func (f *fakeCodeStore) ListByOrder(_ context.Context, orderID int64) ([]models.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var codes []models.AccessCode
	for _, code := range f.byCode {
		if code.OrderID == orderID {
			codes = append(codes, *code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].ID < codes[j].ID })
	return codes, nil
}

func (f *fakeCodeStore) ListBySessionRef(ctx context.Context, sessionRef string) ([]models.AccessCode, error) {
	order, err := f.orders.GetBySessionRef(ctx, sessionRef)
	if err != nil || order == nil {
		return nil, err
	}
	return f.ListByOrder(ctx, order.ID)
}

func (f *fakeCodeStore) Redeem(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	found, ok := f.byCode[code]
	if !ok || !found.IsValid || found.RedeemedAt != nil {
		return false, nil
	}
	now := time.Now()
	found.RedeemedAt = &now
	return true, nil
}

func (f *fakeCodeStore) RedeemOrder(_ context.Context, orderID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	redeemed := 0
	now := time.Now()
	for _, code := range f.byCode {
		if code.OrderID == orderID && code.IsValid && code.RedeemedAt == nil {
			code.RedeemedAt = &now
			redeemed++
		}
	}
	return redeemed, nil
}

func (f *fakeCodeStore) SetValidity(_ context.Context, code string, valid bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	found, ok := f.byCode[code]
	if !ok {
		return false, nil
	}
	found.IsValid = valid
	return true, nil
}

func (f *fakeCodeStore) CountByShow(_ context.Context, showID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := f.soldByShow[showID]
	for _, code := range f.byCode {
		if code.ShowID == showID {
			count++
		}
	}
	return count, nil
}

func (f *fakeCodeStore) CountsByShowCategory(_ context.Context) ([]models.CodeCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keyed := map[[2]string]int{}
	for _, code := range f.byCode {
		keyed[[2]string{code.ShowID, code.Category}]++
	}

	var counts []models.CodeCount
	for key, count := range keyed {
		counts = append(counts, models.CodeCount{ShowID: key[0], Category: key[1], Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].ShowID != counts[j].ShowID {
			return counts[i].ShowID < counts[j].ShowID
		}
		return counts[i].Category < counts[j].Category
	})
	return counts, nil
}

func (f *fakeCodeStore) CountAll(_ context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	redeemed := 0
	for _, code := range f.byCode {
		if code.RedeemedAt != nil {
			redeemed++
		}
	}
	return len(f.byCode), redeemed, nil
}

func (f *fakeCodeStore) CountPendingVerification(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := 0
	for _, code := range f.byCode {
		if code.UitPasNumber != nil && !code.IsValid {
			pending++
		}
	}
	return pending, nil
}

type fakePayments struct {
	mu          sync.Mutex
	createErr   error
	listErr     error
	lastRequest *external.CreateSessionRequest
	lineItems   map[string][]external.SessionLineItem
}

func newFakePayments() *fakePayments {
	return &fakePayments{lineItems: map[string][]external.SessionLineItem{}}
}

func (f *fakePayments) CreateSession(_ context.Context, req external.CreateSessionRequest) (*external.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastRequest = &req
	return &external.CheckoutSession{ID: "cs_test_123", URL: "https://pay.example.com/cs_test_123", Status: "open"}, nil
}

func (f *fakePayments) ListLineItems(_ context.Context, sessionID string) ([]external.SessionLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.lineItems[sessionID], nil
}

type fakeArtifacts struct {
	mu       sync.Mutex
	err      error
	rendered []external.RenderTicketRequest
}

func (f *fakeArtifacts) RenderTicket(_ context.Context, req external.RenderTicketRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.rendered = append(f.rendered, req)
	return nil
}

type verificationMail struct {
	sessionRef    string
	customerEmail string
	items         []external.UitPasItem
}

type fakeMailer struct {
	mu            sync.Mutex
	confirmErr    error
	verifyErr     error
	confirmations []string
	verifications []verificationMail
}

func (f *fakeMailer) SendConfirmation(_ context.Context, to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmations = append(f.confirmations, to+" "+link)
	return nil
}

func (f *fakeMailer) SendVerificationRequest(_ context.Context, sessionRef, customerEmail string, items []external.UitPasItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verifications = append(f.verifications, verificationMail{sessionRef, customerEmail, items})
	return nil
}

type publishedEvent struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{subject, data})
	return nil
}

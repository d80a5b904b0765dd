package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"bookstore/internal/clients"
	"bookstore/internal/sales"
	"bookstore/pkg/apperr"
	"bookstore/pkg/logging"
)

const secret = "whsec_test"

type fakeGateway struct {
	calls []clients.IntentParams
	err   error
}

func (g *fakeGateway) CreateIntent(ctx context.Context, p clients.IntentParams) (*clients.Intent, error) {
	g.calls = append(g.calls, p)
	if g.err != nil {
		return nil, g.err
	}
	return &clients.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

// fakeConfirmer claims transaction ids the way the ledger does.
type fakeConfirmer struct {
	mu        sync.Mutex
	seen      map[string]bool
	confirmed []sales.PaymentConfirmation
	err       error
}

func (c *fakeConfirmer) Confirm(ctx context.Context, pc sales.PaymentConfirmation) (*sales.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.seen[pc.TransactionID] {
		return nil, sales.ErrAlreadyProcessed
	}
	c.seen[pc.TransactionID] = true
	c.confirmed = append(c.confirmed, pc)
	return &sales.Outcome{TransactionID: pc.TransactionID}, nil
}

func newTestService() (Service, *fakeGateway, *fakeConfirmer) {
	gw := &fakeGateway{}
	conf := &fakeConfirmer{seen: map[string]bool{}}
	svc := NewService(gw, conf, Config{WebhookSecret: secret}, logging.Discard())
	return svc, gw, conf
}

func succeeded(id string, amount int64, items, member string) []byte {
	meta := map[string]string{"items": items, "paymentMethod": "card"}
	if member != "" {
		meta["memberid"] = member
	}
	b, _ := json.Marshal(map[string]any{
		"id":   "evt_" + id,
		"type": EventPaymentSucceeded,
		"data": map[string]any{"object": map[string]any{
			"id": id, "amount": amount, "currency": "myr", "metadata": meta,
		}},
	})
	return b
}

func TestVerifySignature(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader(payload, secret, time.Now())

	require.NoError(t, VerifySignature(payload, header, secret, DefaultTolerance))
	// extra v1 entries (rolled secrets) are allowed
	require.NoError(t, VerifySignature(payload, header+",v1=deadbeef", secret, DefaultTolerance))

	assert.ErrorIs(t, VerifySignature(payload, "", secret, DefaultTolerance), ErrNoSignature)
	assert.ErrorIs(t, VerifySignature(payload, header, "other", DefaultTolerance), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature([]byte(`{"id":"evt_2"}`), header, secret, DefaultTolerance), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(payload, "t=abc,v1=00", secret, DefaultTolerance), ErrBadSignature)

	old := SignatureHeader(payload, secret, now.Add(-6*time.Minute))
	assert.ErrorIs(t, VerifySignature(payload, old, secret, DefaultTolerance), ErrSignatureExpired)
	for _, err := range []error{ErrNoSignature, ErrBadSignature, ErrSignatureExpired} {
		assert.ErrorIs(t, err, apperr.ErrInvalid)
	}
}

func TestTamperedPayloadNeverVerifies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, 200).Draw(t, "payload")
		header := SignatureHeader(payload, secret, time.Now())

		tampered := append([]byte(nil), payload...)
		i := rapid.IntRange(0, len(tampered)-1).Draw(t, "i")
		tampered[i] ^= byte(rapid.IntRange(1, 255).Draw(t, "flip"))

		if err := VerifySignature(tampered, header, secret, DefaultTolerance); err == nil {
			t.Fatalf("tampered payload verified")
		}
		if err := VerifySignature(payload, header, secret, DefaultTolerance); err != nil {
			t.Fatalf("original payload rejected: %v", err)
		}
	})
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4550), MinorUnits(decimal.RequireFromString("45.50")))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.985")))
	assert.Equal(t, int64(2000), MinorUnits(decimal.NewFromInt(20)))
}

func TestCreateIntent(t *testing.T) {
	svc, gw, _ := newTestService()
	ctx := context.Background()

	resp, err := svc.CreateIntent(ctx, IntentRequest{
		PaymentMethod: MethodOnlineBanking,
		Items:         json.RawMessage(`[ {"book_ISBN": "A", "quantity": 2} ]`),
		Amount:        decimal.RequireFromString("40.10"),
		MemberID:      "7",
		Bank:          "maybank",
	})
	require.NoError(t, err)
	assert.Equal(t, &IntentResponse{ClientSecret: "pi_1_secret", PaymentIntentID: "pi_1"}, resp)

	require.Len(t, gw.calls, 1)
	p := gw.calls[0]
	assert.Equal(t, int64(4010), p.Amount)
	assert.Equal(t, "myr", p.Currency)
	assert.Equal(t, []string{"fpx"}, p.MethodTypes)
	assert.Equal(t, "maybank", p.FPXBank)
	assert.Equal(t, map[string]string{
		"items":         `[{"book_ISBN":"A","quantity":2}]`,
		"memberid":      "7",
		"paymentMethod": MethodOnlineBanking,
	}, p.Metadata)

	_, err = svc.CreateIntent(ctx, IntentRequest{
		PaymentMethod: MethodCard, Items: json.RawMessage(`[{"book_ISBN":"B","quantity":1}]`), Amount: decimal.NewFromInt(5), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "usd", gw.calls[1].Currency)
	assert.Empty(t, gw.calls[1].FPXBank)
	assert.NotContains(t, gw.calls[1].Metadata, "memberid")
}

func TestCreateIntentRejects(t *testing.T) {
	svc, gw, _ := newTestService()
	ctx := context.Background()
	items := json.RawMessage(`[{"book_ISBN":"A","quantity":1}]`)

	cases := map[string]IntentRequest{
		"no method":   {Items: items, Amount: decimal.NewFromInt(1)},
		"no items":    {PaymentMethod: MethodCard, Items: json.RawMessage(`[]`), Amount: decimal.NewFromInt(1)},
		"zero amount": {PaymentMethod: MethodCard, Items: items},
		"bad method":  {PaymentMethod: "cash", Items: items, Amount: decimal.NewFromInt(1)},
		"no bank":     {PaymentMethod: MethodOnlineBanking, Items: items, Amount: decimal.NewFromInt(1)},
		"bad bank":    {PaymentMethod: MethodOnlineBanking, Items: items, Amount: decimal.NewFromInt(1), Bank: "hsbc"},
	}
	for name, req := range cases {
		_, err := svc.CreateIntent(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrInvalid, name)
	}
	assert.Empty(t, gw.calls)

	gw.err = &clients.APIError{Status: http.StatusBadRequest, Message: "amount too small"}
	_, err := svc.CreateIntent(ctx, IntentRequest{PaymentMethod: MethodCard, Items: items, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	gw.err = errors.New("connection refused")
	_, err = svc.CreateIntent(ctx, IntentRequest{PaymentMethod: MethodCard, Items: items, Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrInvalid)
}

func TestCreateIntentRejectsCartCheckoutWouldRefuse(t *testing.T) {
	svc, gw, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(svc).Routes(r)

	for name, body := range map[string]string{
		"zero quantity":  `{"paymentMethod":"card","amount":10,"items":[{"book_ISBN":"978-1","quantity":0}]}`,
		"missing isbn":   `{"paymentMethod":"card","amount":10,"items":[{"quantity":1}]}`,
		"negative price": `{"paymentMethod":"card","amount":10,"items":[{"book_ISBN":"978-1","quantity":1,"price":-2}]}`,
		"quantity text":  `{"paymentMethod":"card","amount":10,"items":[{"book_ISBN":"978-1","quantity":"two"}]}`,
		"items object":   `{"paymentMethod":"card","amount":10,"items":{"book_ISBN":"978-1"}}`,
		"bad member":     `{"paymentMethod":"card","amount":10,"items":[{"book_ISBN":"978-1","quantity":1}],"memberid":"abc"}`,
		"wallet too":     `{"paymentMethod":"TouchNGo","amount":10,"items":[{"book_ISBN":"978-1","quantity":-1}]}`,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create-payment-intent", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Empty(t, gw.calls)
}

func TestTouchNGoIsSimulated(t *testing.T) {
	svc, gw, _ := newTestService()
	resp, err := svc.CreateIntent(context.Background(), IntentRequest{
		PaymentMethod: MethodTouchNGo,
		Items:         json.RawMessage(`[{"book_ISBN":"A","quantity":1}]`),
		Amount:        decimal.NewFromInt(12),
		MemberID:      "3",
	})
	require.NoError(t, err)
	assert.Equal(t, SimulatedSecret, resp.ClientSecret)
	assert.True(t, resp.Simulated)
	assert.Equal(t, MemberRef("3"), resp.MemberID)
	assert.True(t, strings.HasPrefix(resp.PaymentIntentID, "tng_"))
	assert.Empty(t, gw.calls)
}

func TestWebhookAppliesOnce(t *testing.T) {
	svc, _, conf := newTestService()
	ctx := context.Background()
	payload := succeeded("pi_9", 7100, `[{"book_ISBN":"A","quantity":2,"price":20},{"book_ISBN":"B","quantity":2}]`, "5")
	header := SignatureHeader(payload, secret, time.Now())

	res, err := svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.Equal(t, &WebhookResult{Received: true}, res)

	require.Len(t, conf.confirmed, 1)
	c := conf.confirmed[0]
	assert.Equal(t, "pi_9", c.TransactionID)
	assert.True(t, decimal.RequireFromString("71.00").Equal(c.Amount))
	require.NotNil(t, c.MemberID)
	assert.Equal(t, int64(5), *c.MemberID)
	require.Len(t, c.Items, 2)
	assert.Nil(t, c.Items[1].Price)

	res, err = svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.Equal(t, &WebhookResult{Received: true, Duplicate: true}, res)
	assert.Len(t, conf.confirmed, 1)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc, _, conf := newTestService()
	payload := []byte(`{"id":"evt_1","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`)

	res, err := svc.HandleWebhook(context.Background(), payload, SignatureHeader(payload, secret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, &WebhookResult{Received: true}, res)
	assert.Empty(t, conf.confirmed)
}

func TestWebhookRejectsEventWithoutIntent(t *testing.T) {
	svc, _, conf := newTestService()
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)

	_, err := svc.HandleWebhook(context.Background(), payload, SignatureHeader(payload, secret, time.Now()))
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Empty(t, conf.confirmed)
}

func TestWebhookHandler(t *testing.T) {
	svc, _, conf := newTestService()
	r := chi.NewRouter()
	NewHandler(svc).Routes(r)

	post := func(body []byte, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(body)))
		if sig != "" {
			req.Header.Set("Stripe-Signature", sig)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	payload := succeeded("pi_1", 2000, `[{"book_ISBN":"A","quantity":1}]`, "")

	// signature failures are rejected before anything is applied
	rec := post(payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = post(payload, SignatureHeader(payload, "wrong", time.Now()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = post(payload, SignatureHeader(payload, secret, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, conf.confirmed)

	rec = post(payload, SignatureHeader(payload, secret, time.Now()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	rec = post(payload, SignatureHeader(payload, secret, time.Now()))
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, rec.Body.String())

	bad := succeeded("pi_2", 100, `not json`, "")
	rec = post(bad, SignatureHeader(bad, secret, time.Now()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	conf.err = errors.New("deadlock detected")
	next := succeeded("pi_3", 100, `[{"book_ISBN":"A","quantity":1}]`, "")
	rec = post(next, SignatureHeader(next, secret, time.Now()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Webhook processing failed","message":"deadlock detected"}`, rec.Body.String())
}

func TestPaymentMethodsRoute(t *testing.T) {
	svc, _, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(svc).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment-methods", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Catalogue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got[MethodOnlineBanking].Banks, 5)
	assert.Equal(t, []string{"card"}, got[MethodCard].Types)
	assert.Contains(t, got, MethodTouchNGo)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create-payment-intent",
		strings.NewReader(`{"paymentMethod":"card","items":[{"book_ISBN":"A","quantity":1}],"amount":"12.50","memberid":4}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret","paymentIntentId":"pi_1"}`, rec.Body.String())
}

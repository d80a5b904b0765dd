// internal/payment/domain.go
package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"bookstore/internal/sales"
	"bookstore/pkg/apperr"
)

const (
	MethodOnlineBanking = "onlinebanking"
	MethodCard          = "card"
	MethodTouchNGo      = "TouchNGo"

	// SimulatedSecret is the client secret handed out for simulated wallet
	// payments, which never reach the gateway.
	SimulatedSecret = "simulated_tng_payment"

	EventPaymentSucceeded = "payment_intent.succeeded"
)

var (
	ErrMissingPaymentInfo = apperr.New(apperr.ErrInvalid, "Missing required payment information")
	ErrUnknownMethod      = apperr.New(apperr.ErrInvalid, "Invalid payment method")
	ErrUnknownBank        = apperr.New(apperr.ErrInvalid, "Invalid bank selection")
)

type Bank struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Method struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
	Banks []Bank   `json:"banks,omitempty"`
}

// Catalogue is the set of payment methods offered at the kiosk, keyed by the
// identifier clients send back as paymentMethod.
type Catalogue map[string]Method

// DefaultCatalogue returns the methods the store accepts.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		MethodOnlineBanking: {
			Name:  "Online Banking",
			Types: []string{"fpx"},
			Banks: []Bank{
				{ID: "cimb", Name: "CIMB Bank"},
				{ID: "public", Name: "Public Bank"},
				{ID: "maybank", Name: "Maybank"},
				{ID: "rhb", Name: "RHB Bank"},
				{ID: "hongleong", Name: "Hong Leong Bank"},
			},
		},
		MethodCard: {
			Name:  "Credit/Debit Card",
			Types: []string{"card"},
		},
		MethodTouchNGo: {
			Name:  "TouchNGo eWallet",
			Types: []string{},
		},
	}
}

func (m Method) hasBank(id string) bool {
	for _, b := range m.Banks {
		if b.ID == id {
			return true
		}
	}
	return false
}

// MemberRef is the optional member id on an intent request. The kiosk sends
// it as a number, a string or null.
type MemberRef string

func (m *MemberRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*m = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = MemberRef(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return apperr.Invalidf("memberid must be a number or a string")
		}
		*m = MemberRef(n.String())
	}
	return nil
}

// IntentRequest is the body of POST /create-payment-intent.
type IntentRequest struct {
	PaymentMethod string          `json:"paymentMethod"`
	Items         json.RawMessage `json:"items"`
	Amount        decimal.Decimal `json:"amount"`
	MemberID      MemberRef       `json:"memberid"`
	Currency      string          `json:"currency"`
	Bank          string          `json:"bank"`
}

// Validate checks the fields every method needs. Method specific checks
// happen against the catalogue.
func (r IntentRequest) Validate() error {
	if strings.TrimSpace(r.PaymentMethod) == "" || !r.Amount.IsPositive() {
		return ErrMissingPaymentInfo
	}
	// The webhook decodes this metadata once the customer has been charged,
	// so anything it would reject is refused here.
	cart, _, err := sales.DecodeMetadata(string(r.Items), string(r.MemberID))
	if errors.Is(err, sales.ErrEmptyCart) || len(bytes.TrimSpace(r.Items)) == 0 {
		return ErrMissingPaymentInfo
	}
	if err != nil {
		return err
	}
	return sales.ValidateCart(cart)
}

// MinorUnits converts an amount to the gateway's smallest currency unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// IntentResponse is returned to the kiosk after creating an intent.
type IntentResponse struct {
	ClientSecret    string    `json:"clientSecret"`
	PaymentIntentID string    `json:"paymentIntentId"`
	MemberID        MemberRef `json:"memberid,omitempty"`
	Simulated       bool      `json:"simulated,omitempty"`
}

// WebhookResult is the acknowledgement body for a processed event.
type WebhookResult struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

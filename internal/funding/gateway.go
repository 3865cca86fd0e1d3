package funding

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSignature indicates the webhook payload failed verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is a payment-succeeded notification from the external gateway. The
// wallet id travels in the gateway's event metadata.
type Event struct {
	ID       string          `json:"id"`
	WalletID string          `json:"wallet_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// Gateway verifies and decodes webhook deliveries from the external payment
// processor.
type Gateway interface {
	VerifyEvent(payload []byte, signature string) (Event, error)
}

// HMACGateway verifies payloads with an HMAC-SHA256 signature over the raw
// body, the scheme most processors use for webhook endpoints.
type HMACGateway struct {
	secret []byte
}

// NewHMACGateway builds a gateway verifier with the shared webhook secret.
func NewHMACGateway(secret string) *HMACGateway {
	return &HMACGateway{secret: []byte(secret)}
}

// VerifyEvent checks the signature and decodes the event payload.
func (g *HMACGateway) VerifyEvent(payload []byte, signature string) (Event, error) {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Event{}, ErrInvalidSignature
	}
	return decodeEvent(payload)
}

// StaticGateway skips signature verification. Dev and test use only.
type StaticGateway struct{}

// VerifyEvent decodes the event payload without checking the signature.
func (StaticGateway) VerifyEvent(payload []byte, _ string) (Event, error) {
	return decodeEvent(payload)
}

func decodeEvent(payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.ID == "" {
		return Event{}, fmt.Errorf("event id is required")
	}
	if event.WalletID == "" {
		return Event{}, fmt.Errorf("event wallet_id is required")
	}
	return event, nil
}

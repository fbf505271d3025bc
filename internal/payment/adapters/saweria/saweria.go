package saweria

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/kograph/internal/payment/domain"
)

const SignatureHeader = "saweria-callback-signature"

var checkoutCode = regexp.MustCompile(`KO:([0-9a-fA-F-]{36})`)

// Payload is the donation callback body. Numbers keep their literal JSON
// text because the signature is computed over it.
type Payload struct {
	Version      string      `json:"version"`
	CreatedAt    string      `json:"created_at"`
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	AmountRaw    json.Number `json:"amount_raw"`
	Cut          json.Number `json:"cut,omitempty"`
	DonatorName  string      `json:"donator_name"`
	DonatorEmail string      `json:"donator_email"`
	Message      string      `json:"message,omitempty"`
}

type Adapter struct {
	streamKey []byte
}

func New(streamKey string) (*Adapter, error) {
	streamKey = strings.TrimSpace(streamKey)
	if streamKey == "" {
		return nil, paymentdomain.ErrMissingStreamKey
	}
	return &Adapter{streamKey: []byte(streamKey)}, nil
}

func (a *Adapter) Provider() string {
	return paymentdomain.ProviderSaweria
}

// SignatureFrom reads the signature header and drops an optional sha256=
// prefix.
func SignatureFrom(headers http.Header) (string, error) {
	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return "", paymentdomain.ErrMissingSignature
	}
	return signature, nil
}

func (a *Adapter) Decode(raw []byte) (*Payload, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload Payload
	if err := decoder.Decode(&payload); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(payload.ID) == "" || strings.TrimSpace(payload.Version) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return &payload, nil
}

// Sign returns the hex HMAC-SHA256 of
// version+id+amount_raw+donator_name+donator_email.
func (a *Adapter) Sign(p *Payload) string {
	mac := hmac.New(sha256.New, a.streamKey)
	_, _ = mac.Write([]byte(p.Version))
	_, _ = mac.Write([]byte(p.ID))
	_, _ = mac.Write([]byte(p.AmountRaw.String()))
	_, _ = mac.Write([]byte(p.DonatorName))
	_, _ = mac.Write([]byte(p.DonatorEmail))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) Verify(p *Payload, signature string) error {
	presented, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	expected, err := hex.DecodeString(a.Sign(p))
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	if !hmac.Equal(presented, expected) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// Parse turns a verified payload into a PaymentEvent. The net credit is
// amount_raw minus cut, floored at zero; an unusable cut counts as zero.
func (a *Adapter) Parse(p *Payload) (*paymentdomain.PaymentEvent, error) {
	checkoutID := ExtractCheckoutID(p.Message)
	if checkoutID == "" {
		return nil, paymentdomain.ErrMissingCheckoutCode
	}

	amount, err := decimal.NewFromString(p.AmountRaw.String())
	if err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	cut := decimal.Zero
	if p.Cut != "" {
		if parsed, err := decimal.NewFromString(p.Cut.String()); err == nil {
			cut = parsed
		}
	}

	net := amount.Sub(cut)
	if net.IsNegative() {
		net = decimal.Zero
	}

	cutText := p.Cut.String()
	if cutText == "" {
		cutText = "0"
	}

	return &paymentdomain.PaymentEvent{
		Provider:     a.Provider(),
		EventID:      strings.TrimSpace(p.ID),
		CheckoutID:   checkoutID,
		AmountRaw:    p.AmountRaw.String(),
		Cut:          cutText,
		Net:          net.IntPart(),
		DonatorName:  p.DonatorName,
		DonatorEmail: p.DonatorEmail,
		Message:      p.Message,
	}, nil
}

// ExtractCheckoutID finds the first KO:<uuid> code in a donation message.
func ExtractCheckoutID(message string) string {
	match := checkoutCode.FindStringSubmatch(message)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

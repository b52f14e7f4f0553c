package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Handoff delivers an order to the channel that completes the purchase.
// Send returns a reference for the customer: a link, a message id, or "".
type Handoff interface {
	Name() string
	Send(ctx context.Context, order Order) (string, error)
}

// Opener presents a link to the customer
type Opener interface {
	Open(ctx context.Context, link string) error
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context, link string) error

// Open implements Opener
func (f OpenerFunc) Open(ctx context.Context, link string) error { return f(ctx, link) }

// ErrNoPhone is returned when the WhatsApp handoff has no destination
var ErrNoPhone = errors.New("whatsapp handoff: phone number is required")

// WhatsAppHandoff builds a wa.me deep link carrying the order summary
type WhatsAppHandoff struct {
	baseURL string
	phone   string
	opener  Opener
}

// NewWhatsAppHandoff creates a WhatsApp handoff. Non-digits are stripped from
// phone; opener may be nil, in which case the link is only returned.
func NewWhatsAppHandoff(baseURL, phone string, opener Opener) (*WhatsAppHandoff, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return nil, ErrNoPhone
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://wa.me"
	}
	return &WhatsAppHandoff{baseURL: baseURL, phone: digits, opener: opener}, nil
}

// Name implements Handoff
func (h *WhatsAppHandoff) Name() string { return "whatsapp" }

// Link returns the deep link for a summary
func (h *WhatsAppHandoff) Link(summary string) string {
	return h.baseURL + "/" + h.phone + "?text=" + escapeComponent(summary)
}

// Send implements Handoff
func (h *WhatsAppHandoff) Send(ctx context.Context, order Order) (string, error) {
	link := h.Link(order.Summary)
	if h.opener != nil {
		if err := h.opener.Open(ctx, link); err != nil {
			return "", err
		}
	}
	return link, nil
}

// escapeComponent percent-encodes s for use as a query value, with spaces as %20
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// LogHandoff records orders in the log only
type LogHandoff struct {
	logger *zap.Logger
}

// NewLogHandoff creates a LogHandoff
func NewLogHandoff(logger *zap.Logger) *LogHandoff {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHandoff{logger: logger.Named("checkout")}
}

// Name implements Handoff
func (h *LogHandoff) Name() string { return "log" }

// Send implements Handoff
func (h *LogHandoff) Send(_ context.Context, order Order) (string, error) {
	h.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.Int("total_items", order.TotalItems),
		zap.String("total", order.FormattedTotal),
		zap.String("summary", order.Summary),
	)
	return "", nil
}

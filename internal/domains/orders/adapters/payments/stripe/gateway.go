package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

var _ ports.PaymentGateway = (*Gateway)(nil)

// metadataOrderKey carries the reservation id through the checkout session
// so the webhook can map the confirmation back to the order row.
const metadataOrderKey = "orderId"

// Gateway adapts Stripe Checkout to the payment port: hosted sessions on the
// way out, signed webhook events on the way back in.
type Gateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewGateway wires a Stripe API client from the secret key.
func NewGateway(secretKey, webhookSecret, successURL, cancelURL string) (*Gateway, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if strings.TrimSpace(webhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{
		api:           api,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}, nil
}

// CreateSession creates a hosted Checkout session for one line item of the
// tier's price reference.
func (g *Gateway) CreateSession(ctx context.Context, req ports.SessionRequest) (*ports.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		CustomerEmail:      stripeapi.String(req.CustomerEmail),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{Price: stripeapi.String(req.PriceRef), Quantity: stripeapi.Int64(1)},
		},
		SuccessURL: stripeapi.String(fmt.Sprintf("%s?orderId=%s", g.successURL, req.OrderID)),
		CancelURL:  stripeapi.String(g.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderKey, req.OrderID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &ports.CheckoutSession{ID: session.ID, RedirectURL: session.URL}, nil
}

// VerifyEvent checks the Stripe-Signature header over the raw payload and
// maps the event to the provider-neutral shape. The payload must be the
// unparsed request body, otherwise the signature never matches.
func (g *Gateway) VerifyEvent(payload []byte, signature string) (*ports.GatewayEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidSignature, err)
	}
	mapped := &ports.GatewayEvent{Kind: string(event.Type)}
	if event.Type != stripeapi.EventTypeCheckoutSessionCompleted {
		return mapped, nil
	}
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %w", ports.ErrMalformedEvent, err)
	}
	mapped.Completed = true
	mapped.OrderID = session.Metadata[metadataOrderKey]
	return mapped, nil
}

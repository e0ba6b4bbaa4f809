package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"

	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
	"github.com/opiegroup/atomictawk-sub002/internal/config"
)

type ReturnURLs struct {
	SuccessURL string
	CancelURL  string
}

// DefaultReturnURLs points Stripe back at this service's success page and the cart.
func DefaultReturnURLs(baseURL string) ReturnURLs {
	return ReturnURLs{
		SuccessURL: baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  baseURL + "/cart",
	}
}

type Session struct {
	ID          string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type Builder struct {
	provider  Provider
	currency  string
	countries []string
	rates     []config.ShippingRate
	log       *slog.Logger
}

func NewBuilder(provider Provider, cfg config.Config, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		provider:  provider,
		currency:  cfg.Currency,
		countries: cfg.ShippingCountries,
		rates:     cfg.ShippingRates,
		log:       log,
	}
}

// CreateSession writes nothing locally; the returned session is the only result.
func (b *Builder) CreateSession(ctx context.Context, items []catalog.PricedLineItem, urls ReturnURLs) (Session, error) {
	params := b.sessionParams(items, urls)

	s, err := b.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		b.log.Error("create checkout session failed", "error", err, "items", len(items))
		return Session{}, &ProviderError{Message: providerMessage(err), Err: err}
	}
	if s == nil || s.URL == "" {
		return Session{}, &ProviderError{Message: "checkout session has no redirect url"}
	}

	b.log.Info("checkout session created", "session_id", s.ID, "items", len(items))
	return Session{ID: s.ID, RedirectURL: s.URL}, nil
}

// SessionPaid asks the provider whether the session's payment went through.
// An unknown session id is reported by the provider as an error.
func (b *Builder) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	s, err := b.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return false, &ProviderError{Message: providerMessage(err), Err: err}
	}
	if s == nil {
		return false, nil
	}
	switch s.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true, nil
	default:
		return false, nil
	}
}

func providerMessage(err error) string {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Msg != "" {
		return serr.Msg
	}
	return err.Error()
}

func (b *Builder) sessionParams(items []catalog.PricedLineItem, urls ReturnURLs) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(displayName(it)),
		}
		if it.Image != "" {
			productData.Images = []*string{stripe.String(it.Image)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(b.currency),
				UnitAmount:  stripe.Int64(it.UnitPriceMinorUnits),
				ProductData: productData,
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}

	shipping := make([]*stripe.CheckoutSessionShippingOptionParams, 0, len(b.rates))
	for _, r := range b.rates {
		shipping = append(shipping, &stripe.CheckoutSessionShippingOptionParams{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String(r.DisplayName),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(r.AmountMinorUnits),
					Currency: stripe.String(b.currency),
				},
				DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
					Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
						Unit:  stripe.String("business_day"),
						Value: stripe.Int64(r.MinBusinessDays),
					},
					Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
						Unit:  stripe.String("business_day"),
						Value: stripe.Int64(r.MaxBusinessDays),
					},
				},
			},
		})
	}

	return &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(urls.SuccessURL),
		CancelURL:  stripe.String(urls.CancelURL),
		Metadata:   EncodeMetadata(items),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(b.countries),
		},
		ShippingOptions: shipping,
	}
}

func displayName(it catalog.PricedLineItem) string {
	if it.Variant == "" {
		return it.Name
	}
	return fmt.Sprintf("%s (Size: %s)", it.Name, it.Variant)
}

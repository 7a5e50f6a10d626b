// internal/services/payment_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/config"
	"github.com/communityos/tickets-api/internal/models"
)

// PaymentService turns an unpaid purchase order into a Stripe checkout
// session and stores the resulting payment link on the order. Confirmation
// arrives through the payment webhook, outside this service.
type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type PaymentLineItem struct {
	Name         string
	Quantity     int64
	UnitPrice    int64 // cents
	CurrencyCode string
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
	}
}

// GeneratePaymentLink creates the checkout session for an order and persists
// the platform reference and link within the caller's transaction, so a
// failed Stripe call rolls the whole claim back.
func (s *PaymentService) GeneratePaymentLink(tx *gorm.DB, order *models.PurchaseOrder, items []PaymentLineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("payment link requires at least one line item")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(item.CurrencyCode)),
				UnitAmount: stripe.Int64(item.UnitPrice),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	expiresAt := time.Now().Add(30 * time.Minute)
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(fmt.Sprintf("%s/orders/%s/success", s.config.Frontend.BaseURL, order.ID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/orders/%s/cancelled", s.config.Frontend.BaseURL, order.ID)),
		ExpiresAt:  stripe.Int64(expiresAt.Unix()),
	}
	params.AddMetadata("purchase_order_id", order.ID.String())

	checkoutSession, err := session.New(params)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}

	order.PaymentPlatformReferenceID = checkoutSession.ID
	order.PaymentLink = checkoutSession.URL

	if err := tx.Model(order).Updates(map[string]interface{}{
		"payment_platform_reference_id": checkoutSession.ID,
		"payment_link":                  checkoutSession.URL,
	}).Error; err != nil {
		return fmt.Errorf("failed to store payment link: %w", err)
	}

	return nil
}

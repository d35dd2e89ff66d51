package lib

import (
	"context"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// Payments is the narrow slice of the payment provider the core flows need.
// Replaced with a fake in tests via NewPayments.
type Payments interface {
	CreateIntent(params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(id string) (*stripe.PaymentIntent, error)
	CreateRefund(params *stripe.RefundCreateParams) (*stripe.Refund, error)
}

var payments Payments

func GetPayments() Payments {
	if payments != nil {
		return payments
	}
	payments = &stripePayments{}
	return payments
}

// NewPayments Replace payments instance with a custom implementation
func NewPayments(p Payments) {
	payments = p
}

type stripePayments struct{}

func (s *stripePayments) CreateIntent(params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	sc := GetStripeClient()
	return sc.V1PaymentIntents.Create(context.Background(), params)
}

func (s *stripePayments) RetrieveIntent(id string) (*stripe.PaymentIntent, error) {
	sc := GetStripeClient()
	return sc.V1PaymentIntents.Retrieve(context.Background(), id, nil)
}

func (s *stripePayments) CreateRefund(params *stripe.RefundCreateParams) (*stripe.Refund, error) {
	sc := GetStripeClient()
	return sc.V1Refunds.Create(context.Background(), params)
}

package main

import (
	"carpool/src/utils"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhooks/payments", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "payment_intent.succeeded":
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := utils.ApplyPaymentEvent(&intent, true); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "payment_intent.payment_failed":
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := utils.ApplyPaymentEvent(&intent, false); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "charge.refunded":
			var charge stripe.Charge
			if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
				log.Printf("[Stripe] Error parsing Charge: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			if charge.PaymentIntent == nil {
				log.Printf("[Stripe] Charge %s has no payment intent, skipping\n", charge.ID)
				break
			}
			if err := utils.ApplyChargeRefunded(charge.PaymentIntent.ID); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		default:
			log.Printf("[Stripe] Unhandled event type %s\n", event.Type)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

package main

import (
	"carpool/src/types"
	"carpool/src/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payments/intent", func(ctx *gin.Context) {
			var body types.CreateJITIntentRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, intent, err := utils.CreateJITIntent(ctx.GetUint("id"), &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{
				"data":          payment,
				"client_secret": intent.ClientSecret,
				"amount":        intent.Amount,
			})
		}).
		GET("/payments/intent/:id", func(ctx *gin.Context) {
			id := ctx.Params.ByName("id")
			if id == "" {
				ctx.Status(http.StatusBadRequest)
				return
			}
			intent, err := utils.GetPaymentIntent(id)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"id":     intent.ID,
				"status": intent.Status,
				"amount": intent.Amount,
			})
		})
	return g
}

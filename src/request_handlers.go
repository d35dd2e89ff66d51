package main

import (
	"carpool/src/db"
	"carpool/src/middlewares"
	"carpool/src/models"
	"carpool/src/types"
	"carpool/src/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

func requestHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/ride-requests", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var requests []models.RideRequest
			q := db.Model(&models.RideRequest{})
			if ctx.Query("open") == "true" {
				q = q.Where("status IN ?", []types.RequestStatus{types.REQUEST_PENDING, types.REQUEST_OFFERING})
			} else {
				q = q.Where("passenger_id = ?", userId)
			}
			if err := q.Order("created_at desc").Limit(100).Find(&requests).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": requests, "count": len(requests)})
		}).
		GET("/ride-requests/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var request models.RideRequest
			if err := db.
				Model(&models.RideRequest{}).
				Where("id = ?", params.ID).
				Preload("Offers").
				First(&request).
				Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": request})
		}).
		POST("/ride-requests", func(ctx *gin.Context) {
			var body types.CreateRideRequestRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			request, err := utils.CreateRideRequest(ctx.GetUint("id"), &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": request})
		}).
		PUT("/ride-requests/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateRideRequestRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			request, err := utils.UpdateRideRequest(ctx.GetUint("id"), params.ID, &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": request})
		}).
		POST("/ride-requests/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			request, err := utils.CancelRideRequest(ctx.GetUint("id"), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": request})
		}).
		GET("/ride-requests/:id/offers", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var offers []models.RideRequestOffer
			if err := db.
				Model(&models.RideRequestOffer{}).
				Where("ride_request_id = ?", params.ID).
				Preload("Ride").
				Preload("Driver").
				Order("created_at asc").
				Find(&offers).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": offers, "count": len(offers)})
		}).
		POST("/ride-requests/:id/offers", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateOfferRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			offer, err := utils.CreateOffer(ctx.GetUint("id"), params.ID, &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": offer})
		}).
		PUT("/ride-requests/:id/offers/:offerId/accept", func(ctx *gin.Context) {
			var params types.OfferURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			offer, booking, idempotent, err := utils.AcceptOffer(ctx.GetUint("id"), params.RequestID, params.OfferID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": offer, "booking": booking, "idempotent": idempotent})
		}).
		PUT("/ride-requests/:id/offers/:offerId/reject", func(ctx *gin.Context) {
			var params types.OfferURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			offer, err := utils.RejectOffer(ctx.GetUint("id"), params.RequestID, params.OfferID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": offer})
		}).
		PUT("/ride-requests/:id/offers/:offerId/cancel", func(ctx *gin.Context) {
			var params types.OfferURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			offer, err := utils.CancelOffer(ctx.GetUint("id"), params.RequestID, params.OfferID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": offer})
		})
	return g
}

// dispatchRoutes is the server-to-server surface for the external dispatcher.
// Authenticated by shared secret, not by user token.
func dispatchRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	dispatch := apiv1.Group("")
	dispatch.Use(middlewares.DispatchSecretMiddleware)
	dispatch.
		POST("/ride-requests/:id/accept", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.DispatchAcceptRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			request, booking, idempotent, err := utils.AcceptRideRequest(params.ID, &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": request, "booking": booking, "idempotent": idempotent})
		})
	return dispatch
}

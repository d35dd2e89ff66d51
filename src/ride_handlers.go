package main

import (
	"carpool/src/db"
	"carpool/src/models"
	"carpool/src/types"
	"carpool/src/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

func rideHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/rides", func(ctx *gin.Context) {
			db := db.GetDb()
			var rides []models.Ride
			q := db.Model(&models.Ride{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			} else {
				q = q.Where("status = ?", types.RIDE_OPEN)
			}
			if owner := ctx.Query("mine"); owner == "true" {
				q = q.Where("owner_id = ?", ctx.GetUint("id"))
			}
			if err := q.Order("date_time asc").Limit(100).Find(&rides).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rides, "count": len(rides)})
		}).
		GET("/rides/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var ride models.Ride
			if err := db.
				Model(&models.Ride{}).
				Where("id = ?", params.ID).
				Preload("Owner").
				First(&ride).
				Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ride})
		}).
		POST("/rides", func(ctx *gin.Context) {
			var body types.CreateRideRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ride, err := utils.CreateRide(ctx.GetUint("id"), &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": ride})
		}).
		PUT("/rides/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateRideRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ride, err := utils.UpdateRide(ctx.GetUint("id"), params.ID, &body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ride})
		}).
		PUT("/rides/:id/start", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ride, err := utils.StartRide(ctx.GetUint("id"), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ride})
		}).
		PUT("/rides/:id/complete", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ride, err := utils.CompleteRide(ctx.GetUint("id"), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ride})
		}).
		PUT("/rides/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ride, err := utils.CancelRide(ctx.GetUint("id"), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ride})
		})
	return g
}

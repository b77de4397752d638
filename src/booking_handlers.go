package main

import (
	"etix/src/booking"
	"etix/src/db"
	"etix/src/models"
	"etix/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			result, err := booking.CreateBooking(ctx.Request.Context(), body.EventID, body.Items, userId)
			if err != nil {
				log.Printf("Error creating booking: %s\n", err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": result})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var bookings []models.Booking
			if err := gdb.
				Model(&models.Booking{}).
				Where(&models.Booking{UserID: userId}).
				Preload("Event").
				Preload("Tickets").
				Order("created_at DESC").
				Limit(20).
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var b models.Booking
			if err := gdb.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID, UserID: userId}).
				Preload("Event").
				Preload("Tickets").
				Preload("Payments").
				First(&b).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": b})
		}).
		POST("/bookings/:id/checkout", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			url, err := booking.CreateCheckoutSession(params.ID, userId)
			if err != nil {
				log.Printf("Could not start checkout for booking %d: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"url": url})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			if err := booking.CancelBooking(params.ID, userId); err != nil {
				log.Printf("Could not cancel booking %d: %s\n", params.ID, err.Error())
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case types.IsKind(err, types.KindNotFound):
		return http.StatusNotFound
	case types.IsKind(err, types.KindInvalidState):
		return http.StatusConflict
	case types.IsKind(err, types.KindCapacityExceeded):
		return http.StatusConflict
	case types.IsKind(err, types.KindValidation):
		return http.StatusBadRequest
	case types.IsKind(err, types.KindUnauthorized):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

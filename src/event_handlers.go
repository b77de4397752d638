package main

import (
	"etix/src/config"
	"etix/src/db"
	"etix/src/models"
	"etix/src/types"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			endsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.EndsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			event := models.Event{
				Title:       body.Title,
				Location:    body.Location,
				Capacity:    body.Capacity,
				OrganizerID: organizerId,
				StartsAt:    startsAt,
				EndsAt:      endsAt,
				Status:      types.EVENT_DRAFT,
			}
			if body.About != "" {
				event.About = &body.About
			}
			if body.OpensAt != nil {
				opensAt, err := time.Parse(config.TIME_PARSE_FORMAT, *body.OpensAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				event.SaleOpensAt = &opensAt
			}
			if body.Publish {
				event.Status = types.EVENT_PUBLISHED
			}
			gdb := db.GetDb()
			if err := gdb.Create(&event).Error; err != nil {
				log.Printf("Error creating event: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": event.ID})
		}).
		GET("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var event models.Event
			if err := gdb.
				Model(&models.Event{}).
				Where(&models.Event{ID: params.ID}).
				Preload("TicketTypes").
				First(&event).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		PUT("/events/:id/publish", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			gdb := db.GetDb()
			res := gdb.
				Model(&models.Event{}).
				Where("id = ? AND organizer_id = ? AND status = ?", params.ID, organizerId, types.EVENT_DRAFT).
				Update("status", types.EVENT_PUBLISHED)
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusConflict, gin.H{"error": "event cannot be published"})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/ticket-types", func(ctx *gin.Context) {
			var body types.CreateTicketTypeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			gdb := db.GetDb()
			var event models.Event
			if err := gdb.
				Model(&models.Event{}).
				Where(&models.Event{ID: body.EventID, OrganizerID: organizerId}).
				First(&event).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
				return
			}
			ticketType := models.TicketType{
				EventID:   body.EventID,
				Name:      body.Name,
				BasePrice: body.BasePrice,
				Quantity:  body.Quantity,
				IsActive:  true,
			}
			if err := gdb.Create(&ticketType).Error; err != nil {
				log.Printf("Error creating ticket type: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": ticketType.ID})
		})
	return g
}

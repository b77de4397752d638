package main

import (
	"etix/src/db"
	"etix/src/models"
	"etix/src/types"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
)

func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/tickets/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var ticket models.Ticket
			if err := gdb.
				Model(&models.Ticket{}).
				Where(&models.Ticket{ID: params.ID}).
				Preload("Event").
				Preload("TicketType").
				Preload("Booking").
				First(&ticket).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
				return
			}
			if ticket.Booking == nil || ticket.Booking.UserID != userId {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		GET("/tickets/:id/qrcode", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var ticket models.Ticket
			if err := gdb.
				Model(&models.Ticket{}).
				Where(&models.Ticket{ID: params.ID}).
				Preload("Booking").
				First(&ticket).
				Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			if ticket.Booking == nil || ticket.Booking.UserID != userId {
				ctx.Status(http.StatusNotFound)
				return
			}
			if ticket.Status != types.TICKET_RESERVED {
				ctx.JSON(http.StatusConflict, gin.H{"error": "ticket is no longer valid"})
				return
			}
			qrc, err := qrcode.New(ticket.QrCode)
			if err != nil {
				log.Printf("Error building qrcode for ticket %d: %s\n", ticket.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			filepath := path.Join(os.TempDir(), fmt.Sprintf("eticket_%d.jpeg", ticket.ID))
			if err := qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.FileAttachment(filepath, "eticket.jpeg")
		})
	return g
}

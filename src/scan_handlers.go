package main

import (
	"etix/src/db"
	"etix/src/models"
	"etix/src/scan"
	"etix/src/types"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func scanHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/scan", func(ctx *gin.Context) {
			var body types.ScanTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			scannerId := ctx.GetUint("id")
			result, err := scan.ScanTicket(scan.ScanInput{
				QrCode:        body.Code,
				ScannerUserID: scannerId,
				DeviceID:      body.DeviceID,
				Location:      body.Location,
			})
			if err != nil {
				log.Printf("Error processing scan: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		GET("/events/:id/scan-logs", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))
			logs, err := scan.GetEventScanLogs(params.ID, limit)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": logs, "count": len(logs)})
		}).
		GET("/events/:id/scan-summary", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			summary, err := scan.GetScanSummary(params.ID)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": summary})
		}).
		GET("/gate-persons/:id/scans", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
			logs, err := scan.GetGatePersonRecentScans(params.ID, limit)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": logs, "count": len(logs)})
		}).
		POST("/gate-persons", func(ctx *gin.Context) {
			var body types.CreateGatePersonRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gate := models.GatePerson{
				UserID:      body.UserID,
				OrganizerID: body.OrganizerID,
				EventIDs:    types.UintList(body.EventIDs),
				IsActive:    true,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&gate).Error; err != nil {
				log.Printf("Error creating gate person: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": gate.ID})
		}).
		PATCH("/gate-persons/:id/deactivate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			res := gdb.
				Model(&models.GatePerson{}).
				Where(&models.GatePerson{ID: params.ID}).
				Update("is_active", false)
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}

package main

import (
	"etix/src/config"
	"etix/src/db"
	"etix/src/models"
	"etix/src/pricing"
	"etix/src/types"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func pricingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/ticket-types/:id/price", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			price, err := pricing.GetCurrentPrice(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"ticket_type": params.ID, "price": price})
		}).
		GET("/ticket-types/:id/rules", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var rules []models.DynamicPricingRule
			if err := gdb.
				Where(&models.DynamicPricingRule{TicketTypeID: params.ID}).
				Order("created_at DESC").
				Find(&rules).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rules})
		}).
		POST("/pricing-rules", func(ctx *gin.Context) {
			var body types.PricingRuleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rule, err := ruleFromRequest(&body)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var ticketType models.TicketType
			if err := gdb.
				Where(&models.TicketType{ID: body.TicketTypeID}).
				First(&ticketType).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket type not found"})
				return
			}
			if err := gdb.Create(rule).Error; err != nil {
				log.Printf("Error creating pricing rule: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": rule.ID})
		}).
		PATCH("/pricing-rules/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.PricingRuleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updated, err := ruleFromRequest(&body)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var rule models.DynamicPricingRule
			if err := gdb.
				Where(&models.DynamicPricingRule{ID: params.ID}).
				First(&rule).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "pricing rule not found"})
				return
			}
			updated.ID = rule.ID
			updated.TicketTypeID = rule.TicketTypeID
			if err := gdb.Save(updated).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": updated})
		})
	return g
}

// ruleFromRequest parses and validates a rule definition. Validation happens
// here, at write time; the pricing engine never re-checks what it reads.
func ruleFromRequest(body *types.PricingRuleRequestBody) (*models.DynamicPricingRule, error) {
	rule := models.DynamicPricingRule{
		TicketTypeID:     body.TicketTypeID,
		RuleType:         body.RuleType,
		DiscountPercent:  body.DiscountPercent,
		IncreasePercent:  body.IncreasePercent,
		LastNDays:        body.LastNDays,
		ThresholdPercent: body.ThresholdPercent,
		IsActive:         true,
	}
	if body.IsActive != nil {
		rule.IsActive = *body.IsActive
	}
	if body.StartDate != nil {
		start, err := time.Parse(config.TIME_PARSE_FORMAT, *body.StartDate)
		if err != nil {
			return nil, types.ValidationError("invalid start_date: %s", err.Error())
		}
		rule.StartDate = &start
	}
	if body.EndDate != nil {
		end, err := time.Parse(config.TIME_PARSE_FORMAT, *body.EndDate)
		if err != nil {
			return nil, types.ValidationError("invalid end_date: %s", err.Error())
		}
		rule.EndDate = &end
	}
	if err := pricing.ValidateRule(&rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

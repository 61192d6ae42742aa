package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"genbiapi/pkg/logger"
	"genbiapi/services/audit"
	"genbiapi/services/pipeline"
	"genbiapi/utils"

	"github.com/gin-gonic/gin"
)

var (
	queryPipeline *pipeline.Pipeline
	auditSrv      audit.AuditService
)

// SetQueryPipeline initializes the generation pipeline instance.
func SetQueryPipeline(p *pipeline.Pipeline) {
	queryPipeline = p
}

// SetAuditService initializes the audit service instance.
func SetAuditService(srv audit.AuditService) {
	auditSrv = srv
}

// AskRequest represents the request body for a natural-language query
type AskRequest struct {
	Question string `json:"question" binding:"required,min=3"`
}

// Ask answers a natural-language question with a tabular result
// @Summary Ask a question
// @Description Runs the question through context building, authorization, SQL generation, validation and execution
// @Tags Queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param askRequest body AskRequest true "Question"
// @Success 200 {object} pipeline.Result "Pipeline result, successful or terminal failure"
// @Failure 400 {object} StandardErrorResponse "Invalid request parameters"
// @Router /api/queries/ask [post]
func ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid request body: %v", err))
		return
	}

	principal := CurrentPrincipal(c)
	logger.Infof("Query from %s: %s", principal.Username, req.Question)

	start := time.Now()
	result := queryPipeline.ProcessQuery(c.Request.Context(), req.Question, principal)
	auditSrv.Record(principal, result, time.Since(start))

	utils.JSONResponse(c, http.StatusOK, result)
}

// QueryHistory lists recent pipeline runs
// @Summary Query history
// @Description Lists recent pipeline runs; admins see all users, others their own
// @Tags Queries
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} models.QueryHistory "History entries"
// @Router /api/queries/history [get]
func queryHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	principal := CurrentPrincipal(c)
	if principal.IsAdmin() {
		entries, err := auditSrv.Recent(limit)
		if err != nil {
			utils.ErrorResponse(c, err)
			return
		}
		utils.JSONResponse(c, http.StatusOK, entries)
		return
	}

	entries, err := auditSrv.ForUser(principal.UserID, limit)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, entries)
}

// RegisterQueryRoutes registers HTTP endpoints for natural-language queries.
func RegisterQueryRoutes(rg *gin.RouterGroup) {
	queries := rg.Group("/queries", RequireAuth())
	{
		queries.POST("/ask", ask)
		queries.GET("/history", queryHistory)
	}
}

package controllers

import (
	"genbiapi/pkg/logger"
	"genbiapi/services/policy"
	"genbiapi/services/schema"
	"genbiapi/services/semantic"
	"genbiapi/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	schemaProvider *schema.Provider
	policyEngine   *policy.Engine
	lexicalIndex   *semantic.LexicalIndex
)

// SetSchemaProvider initializes the schema provider instance.
func SetSchemaProvider(p *schema.Provider) {
	schemaProvider = p
}

// SetPolicyEngine initializes the policy engine instance.
func SetPolicyEngine(e *policy.Engine) {
	policyEngine = e
}

// SetLexicalIndex initializes the similarity index rebuilt alongside the schema.
func SetLexicalIndex(idx *semantic.LexicalIndex) {
	lexicalIndex = idx
}

// GetSchema returns the schema visible to the caller
// @Summary Get schema metadata
// @Description Returns the target schema with unauthorized tables and columns stripped
// @Tags Schema
// @Produce json
// @Security BearerAuth
// @Success 200 {object} schema.Graph "Filtered schema graph"
// @Failure 400 {object} StandardErrorResponse "Schema unavailable"
// @Router /api/schema [get]
func getSchema(c *gin.Context) {
	graph, err := schemaProvider.GetSchema(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	filtered := policyEngine.FilterSchema(graph, CurrentPrincipal(c))
	utils.JSONResponse(c, http.StatusOK, filtered)
}

// RebuildSchema re-introspects the target database
// @Summary Rebuild schema graph
// @Description Re-introspects the target database and refreshes the similarity index (admin only)
// @Tags Schema
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse "Schema rebuilt"
// @Failure 400 {object} StandardErrorResponse "Introspection failed"
// @Router /api/schema/rebuild [post]
func rebuildSchema(c *gin.Context) {
	graph, err := schemaProvider.Rebuild(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	if lexicalIndex != nil {
		lexicalIndex.Rebuild(graph)
	}

	logger.Infof("Schema rebuilt by %s: %d tables", CurrentPrincipal(c).Username, len(graph.Tables))
	utils.JSONResponse(c, http.StatusOK, gin.H{"message": "schema rebuilt", "tables": len(graph.Tables)})
}

// RegisterSchemaRoutes registers HTTP endpoints for schema metadata.
func RegisterSchemaRoutes(rg *gin.RouterGroup) {
	sch := rg.Group("/schema", RequireAuth())
	{
		sch.GET("", getSchema)
		sch.POST("/rebuild", RequireAdmin(), rebuildSchema)
	}
}

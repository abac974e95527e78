package runtime

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewHTTPHandler mounts the app's execution surface on a gin engine. The
// routes are a thin wrapper over App: the platform itself is driven
// in-process, this exists for operators and external flow producers.
func NewHTTPHandler(app *App, g *gin.Engine) {
	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g.GET("/flows", func(c *gin.Context) {
		type flowSummary struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		summaries := make([]flowSummary, 0)
		for _, f := range app.Flows() {
			summaries = append(summaries, flowSummary{ID: f.ID, Name: f.Name, Version: f.Version})
		}
		c.JSON(http.StatusOK, summaries)
	})

	g.POST("/flows", func(c *gin.Context) {
		var flow Flow
		if err := c.ShouldBindJSON(&flow); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid flow document: " + err.Error()})
			return
		}
		if err := app.RegisterFlow(flow); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": flow.ID})
	})

	g.POST("/flows/:id/execute", func(c *gin.Context) {
		variables := map[string]any{}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&variables); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid variables body: " + err.Error()})
				return
			}
		}

		execution, err := app.ExecuteFlow(c.Request.Context(), c.Param("id"), variables)
		if err != nil {
			if execution == nil {
				c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
				return
			}

			var flowErr *FlowError
			status := http.StatusInternalServerError
			if errors.As(err, &flowErr) && flowErr.Type == ErrorTypeConfig {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"message": err.Error(), "execution": execution})
			return
		}

		c.JSON(http.StatusOK, execution)
	})

	g.GET("/actions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actions":   app.Registry.ActionNames(),
			"providers": app.Registry.ProviderNames(),
		})
	})
}

package api

import (
	"net/http"
	"time"

	"sheetflow/internal"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP routes
func NewRouter(rows *RowsHandler, logger *internal.Logger) *gin.Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.Named("HTTP")))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.POST("/rows", rows.StreamRows)
	v1.POST("/convert", rows.Convert)
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

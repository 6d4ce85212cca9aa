package api

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// loggingMiddleware logs each request with its status and latency.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Printf("[API] %s %s [%d] (%v)", method, path, c.Writer.Status(), time.Since(start))
	}
}

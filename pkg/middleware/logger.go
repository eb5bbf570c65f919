package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"lc2gh/pkg/logger"
)

// RequestLogger 记录每个请求的方法、路径、状态码与耗时
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start).Round(time.Microsecond)
		path := c.Request.URL.Path
		switch {
		case status >= 500:
			logger.Error("%s %s %d %s", c.Request.Method, path, status, latency)
		case status >= 400:
			logger.Warn("%s %s %d %s", c.Request.Method, path, status, latency)
		default:
			logger.Debug("%s %s %d %s", c.Request.Method, path, status, latency)
		}
	}
}

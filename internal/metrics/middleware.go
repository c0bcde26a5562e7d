package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware counting requests by route
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}

package middlewares

import (
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// ErrorLogger logs only requests that attached errors to the gin context.
func ErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		fields := logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}
		ctx := c.Request.Context()
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			fields["correlation_id"] = cid
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		logger.WithFields(fields).Error(c.Errors.String())
	}
}

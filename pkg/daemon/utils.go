package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Streams stay open for the whole session, so their latency is not a
// request latency.
var streamPaths = map[string]struct{}{
	"/events": {},
	"/live":   {},
}

// ginLogger logs every request through logrus. Requests that change the
// lifecycle also carry the state the controller ended in.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		fields := logrus.Fields{
			"statusCode": statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
		}
		if c.Request.Method != http.MethodGet && controller != nil {
			fields["state"] = controller.State().String()
		}

		if _, ok := streamPaths[path]; ok {
			fields["duration"] = elapsed.Round(time.Millisecond)
			logger.WithFields(fields).Info("stream closed")
			return
		}

		latency := elapsed.Milliseconds()
		fields["latency"] = latency
		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}

		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(msg)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(msg)
		case c.Request.Method == http.MethodGet:
			// Status polling by the CLI is noisy.
			entry.Trace(msg)
		default:
			entry.Debug(msg)
		}
	}
}

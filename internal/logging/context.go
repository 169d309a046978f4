package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys the API middleware stores on the gin context
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
)

// requestEvent decorates e with the request id, route and elapsed time of c.
func requestEvent(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if id := c.GetString(RequestIDKey); id != "" {
		e.Str("request_id", id)
	}
	if c.Request != nil {
		e.Str("method", c.Request.Method)
	}
	route := c.FullPath()
	if route == "" && c.Request != nil {
		route = c.Request.URL.Path
	}
	e.Str("route", route)
	if start := c.GetTime(StartTimeKey); !start.IsZero() {
		e.Dur("elapsed", time.Since(start))
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return requestEvent(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return requestEvent(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return requestEvent(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return requestEvent(c, log.Error()) }

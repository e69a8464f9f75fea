package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lambda-http/pkg/httperr"
)

// Recovery converts panics outside function dispatch into a 500 JSON error
func Recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"request_id": c.GetString(RequestIDKey),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      fmt.Sprint(r),
				}).Error("Recovered from panic")

				if !c.Writer.Written() {
					_ = httperr.Internal("An unknown error occurred").Response().Write(c.Writer)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

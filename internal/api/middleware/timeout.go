package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TimeoutConfig returns timeout middleware configuration
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: timeout,
	})
}

// SelectiveTimeoutConfig applies a longer timeout to LLM-heavy endpoints and
// the default everywhere else
func SelectiveTimeoutConfig(defaultTimeout, llmTimeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			timeout := defaultTimeout
			if isLLMEndpoint(c.Request().URL.Path) {
				timeout = llmTimeout
			}

			handler := middleware.TimeoutWithConfig(middleware.TimeoutConfig{
				Timeout: timeout,
			})(next)
			return handler(c)
		}
	}
}

// isLLMEndpoint reports whether the path runs a synchronous match analysis
func isLLMEndpoint(path string) bool {
	return strings.HasSuffix(path, "/match")
}

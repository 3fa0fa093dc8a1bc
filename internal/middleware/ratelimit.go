package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "10-M" for ten requests a minute.
func RateLimit(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	l := limiter.New(memory.NewStore(), r)
	return mgin.NewMiddleware(l,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			GetLogger(c).WarnContext(c, "rate limit reached", "client_ip", c.ClientIP())
			c.JSON(http.StatusTooManyRequests, gin.H{"code": "RATE_LIMITED", "message": "Too many attempts, please try again later"})
		}),
	), nil
}

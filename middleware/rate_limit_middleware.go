package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"remotecmd/message"
)

// RateLimit rejects requests beyond a token-bucket budget with an ERROR
// response of kind "busy". The session survives; the caller may try again.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return message.ErrorResponse("busy", "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}

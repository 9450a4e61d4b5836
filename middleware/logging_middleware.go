package middleware

import (
	"context"
	"time"

	"remotecmd/logging"
	"remotecmd/message"
	"remotecmd/value"
)

// Logging logs every dispatched command with its duration, and the error
// payload when the command failed.
func Logging(log *logging.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next(ctx, req)
			log.Printf("command=%s duration=%s status=%s", req.Command, time.Since(start), resp.Tag)
			if resp.Tag == message.TagError {
				if e, ok := resp.Payload.(*value.Error); ok {
					log.Printf("command=%s error kind=%s: %s", req.Command, e.Kind, e.Message)
				}
			}
			return resp
		}
	}
}

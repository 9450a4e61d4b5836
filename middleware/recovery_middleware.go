package middleware

import (
	"context"

	"remotecmd/logging"
	"remotecmd/message"
)

// Recovery converts a panicking handler into an ERROR response so a
// misbehaving registered callable cannot take down the session.
func Recovery(log *logging.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (resp *message.Response) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("command=%s panic: %v", req.Command, r)
					resp = message.ErrorResponse("application", "command %q panicked: %v", req.Command, r)
				}
			}()
			return next(ctx, req)
		}
	}
}

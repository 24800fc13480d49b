package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/NICValidator/internal/core"
)

// WithRequestMetadata adds the client IP to ctx for upload history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	// RemoteAddr was already rewritten by TrustedRealIP
	return core.ContextWithClientIP(ctx, clientIP(r))
}

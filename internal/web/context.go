package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/fieldpreview/internal/preview"
)

// WithRequestMetadata adds the client IP and User-Agent to the context for
// the preview history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	// RemoteAddr was already resolved by TrustedRealIP.
	return preview.ContextWithClient(ctx, r.RemoteAddr, r.UserAgent())
}

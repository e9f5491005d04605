package auth

import (
	"net/http"
	"strings"
)

// FailureFunc writes the response for a request that could not be
// authenticated.
type FailureFunc func(w http.ResponseWriter, r *http.Request, err error)

// TokenFromRequest extracts a Bearer token from the Authorization header,
// falling back to the X-API-Key header.
func TokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if t := strings.TrimSpace(after); t != "" {
			return t
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// Middleware authenticates every request with a and stores the caller in
// the request context. Requests without a valid credential are passed to
// fail with a WWW-Authenticate challenge already set.
func Middleware(a Authenticator, fail FailureFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token := TokenFromRequest(r); token != "" {
				ctx = WithToken(ctx, token)
			}

			caller, err := a.Authenticate(ctx)
			if err != nil || caller == nil {
				if err == nil {
					err = ErrInvalidCredentials
				}
				w.Header().Set("WWW-Authenticate", "Bearer")
				fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
		})
	}
}

// Package auth builds per-request action contexts from transport
// credentials. A ContextProvider inspects the inbound request and either
// yields the ambient action.Context for the invocation or rejects it.
package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/types"
)

// RequestData is the transport-agnostic shape of an inbound request.
// Header keys are lowercase.
type RequestData struct {
	Method  string
	Headers map[string]string
	Input   json.RawMessage
}

// ContextProvider authenticates a request and produces the action context
// handed to the invoked flow or action.
type ContextProvider func(ctx context.Context, req RequestData) (action.Context, error)

// APIKey authenticates via the "authorization" header. With no keys listed,
// any non-empty value is accepted and echoed into the context; with keys,
// the value must match one of them. A missing header is UNAUTHENTICATED, a
// mismatch PERMISSION_DENIED.
func APIKey(keys ...string) ContextProvider {
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
	}
	return func(_ context.Context, req RequestData) (action.Context, error) {
		key := req.Headers["authorization"]
		if key == "" {
			return nil, types.NewError(types.StatusUnauthenticated, "api key is required")
		}
		if len(allowed) > 0 && !allowed[key] {
			return nil, types.NewError(types.StatusPermissionDenied, "api key is not authorized")
		}
		return action.Context{"auth": map[string]any{"apiKey": key}}, nil
	}
}

// JWTBearer authenticates an HS256 "Bearer" token signed with secret and
// exposes its claims under the context's "auth" key.
func JWTBearer(secret []byte) ContextProvider {
	return func(_ context.Context, req RequestData) (action.Context, error) {
		header := req.Headers["authorization"]
		if header == "" {
			return nil, types.NewError(types.StatusUnauthenticated, "bearer token is required")
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return nil, types.NewError(types.StatusUnauthenticated, "authorization header is not a bearer token")
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, types.NewError(types.StatusUnauthenticated,
					"unexpected signing method %q", t.Method.Alg())
			}
			return secret, nil
		})
		if err != nil {
			return nil, types.NewError(types.StatusUnauthenticated, "invalid token").WithCause(err)
		}

		return action.Context{"auth": map[string]any(claims)}, nil
	}
}

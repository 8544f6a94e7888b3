package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/golang-jwt/jwt/v5"
)

type decisionContextKey struct{}

// Decision is the guard's outcome for one request, injected into the request
// context on success so handlers can consult the full effective mask without
// a second resolve.
type Decision struct {
	UserID    string
	ChannelID string
	Effective permission.Mask
}

// DecisionFromContext returns the guard decision stored by [Guard], if any.
func DecisionFromContext(ctx context.Context) (*Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(*Decision)
	return d, ok
}

// ChannelExtractor pulls the target channel id out of a request. Returning an
// empty string rejects the request with 400.
type ChannelExtractor func(r *http.Request) string

// GuardConfig configures [Guard].
type GuardConfig struct {
	// Engine performs resolution. Required.
	Engine *goPerm.Engine
	// JWTSecret verifies the HS256 bearer token whose subject is the acting
	// user id. Required.
	JWTSecret []byte
	// Channel extracts the channel id from the request. Required.
	Channel ChannelExtractor
	// Required is the permission set the caller must hold in full. A zero
	// mask admits any member the engine can resolve.
	Required permission.Mask
}

// Guard returns middleware that authenticates the bearer token, resolves the
// caller's effective mask for the extracted channel, and rejects the request
// unless every required bit is held.
//
// Status mapping: missing or invalid token is 401; a caller who is not a
// member, a DM channel, or a missing required bit is 403; an unknown channel
// or server is 404; a directory outage is 503.
func Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Engine == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			userID, ok := subjectFromToken(token, cfg.JWTSecret)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			channelID := cfg.Channel(r)
			if channelID == "" {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			effective, err := cfg.Engine.Resolve(r.Context(), userID, channelID)
			if err != nil {
				http.Error(w, statusText(err), statusCode(err))
				return
			}
			if !effective.Has(cfg.Required) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			decision := &Decision{UserID: userID, ChannelID: channelID, Effective: effective}
			ctx := context.WithValue(r.Context(), decisionContextKey{}, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission is the common-case guard: one engine, one secret, one
// required permission set, channel id taken from the "channel" query
// parameter unless a custom extractor is given.
func RequirePermission(engine *goPerm.Engine, secret []byte, required permission.Mask) func(http.Handler) http.Handler {
	return Guard(GuardConfig{
		Engine:    engine,
		JWTSecret: secret,
		Channel:   QueryChannel("channel"),
		Required:  required,
	})
}

// QueryChannel extracts the channel id from a query parameter.
func QueryChannel(param string) ChannelExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func subjectFromToken(token string, secret []byte) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, goPerm.ErrChannelNotFound), errors.Is(err, goPerm.ErrServerNotFound):
		return http.StatusNotFound
	case errors.Is(err, goPerm.ErrNotAMember), errors.Is(err, goPerm.ErrNotServerChannel):
		return http.StatusForbidden
	case errors.Is(err, goPerm.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statusText(err error) string {
	switch statusCode(err) {
	case http.StatusNotFound:
		return "not found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusServiceUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}

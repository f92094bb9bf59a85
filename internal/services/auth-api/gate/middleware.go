package gate

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/httpx"
	"github.com/NordCoder/Warden/internal/obs"
)

// Identity is the verified caller attached to the request context.
// FromCookie marks identities read from the mirrored access cookie, which
// only count for routing.
type Identity struct {
	Claims     *auth.Claims
	FromCookie bool
}

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)
		kind := "page"
		if _, ok := g.apiPrefix(r.URL.Path); ok {
			kind = "api"
		}
		gateDecisions.WithLabelValues(kind, d.Action.String()).Inc()

		if d.ClearCookie {
			http.SetCookie(w, &http.Cookie{
				Name:     g.cfg.AccessCookieName,
				Value:    "",
				Path:     g.cfg.CookiePath,
				Domain:   g.cfg.CookieDomain,
				MaxAge:   -1,
				Secure:   g.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		switch d.Action {
		case Allow:
			if d.Identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), *d.Identity))
			}
			next.ServeHTTP(w, r)
		case RedirectLogin, RedirectDashboard:
			http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
		case Unauthorized:
			httpx.WriteFailure(w, http.StatusUnauthorized, "Authentication required")
		case Forbidden:
			obs.WithTrace(r.Context(), g.log).Info("admin route refused",
				zap.String("path", r.URL.Path),
				zap.String("user_id", d.Identity.Claims.UserID),
			)
			httpx.WriteFailure(w, http.StatusForbidden, "Insufficient permissions")
		}
	})
}

// RequireBearer refuses requests whose identity did not come from the
// Authorization header. Data-mutating handlers sit behind it.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromCtx(r.Context())
		if !ok || id.FromCookie {
			httpx.WriteFailure(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package gate decides, for every inbound request, whether it proceeds,
// is redirected or is refused, based on the presented access token and the
// class of the requested route.
package gate

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/httpx"
)

var gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gate_decisions_total",
	Help: "Request gate decisions by route kind and action.",
}, []string{"kind", "action"})

type Config struct {
	LoginPath     string
	DashboardPath string
	CallbackParam string

	PublicPaths       []string
	AuthOnlyPaths     []string
	AdminPaths        []string
	APIPrefixes       []string
	PublicAPIPrefixes []string

	AccessCookieName string
	CookiePath       string
	CookieDomain     string
	CookieSecure     bool
}

// Verifier is the access-token side of the token codec.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

type Action int

const (
	Allow Action = iota
	RedirectLogin
	RedirectDashboard
	Unauthorized
	Forbidden
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDashboard:
		return "redirect_dashboard"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

type Decision struct {
	Action      Action
	Location    string
	ClearCookie bool
	// Identity is set when a valid token was presented.
	Identity *Identity
}

type Gate struct {
	cfg      Config
	verifier Verifier
	log      *zap.Logger
}

func New(cfg Config, v Verifier, log *zap.Logger) *Gate {
	if cfg.CallbackParam == "" {
		cfg.CallbackParam = "callbackUrl"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	return &Gate{cfg: cfg, verifier: v, log: log.With(zap.String("component", "gate"))}
}

// Decide classifies r and applies the decision table. It has no side effects.
func (g *Gate) Decide(r *http.Request) Decision {
	path := r.URL.Path
	if prefix, ok := g.apiPrefix(path); ok {
		return g.decideAPI(r, path, prefix)
	}
	return g.decidePage(r, path)
}

func (g *Gate) decideAPI(r *http.Request, path, prefix string) Decision {
	id := g.identity(httpx.BearerToken(r), false)

	if hasPrefix(path, g.cfg.PublicAPIPrefixes) {
		return Decision{Action: Allow, Identity: id}
	}
	if id == nil {
		return Decision{Action: Unauthorized}
	}
	rest := "/" + strings.TrimPrefix(path, prefix)
	if (matchAny(path, g.cfg.AdminPaths) || matchAny(rest, g.cfg.AdminPaths)) && !id.Claims.Role.IsAdmin() {
		return Decision{Action: Forbidden, Identity: id}
	}
	return Decision{Action: Allow, Identity: id}
}

func (g *Gate) decidePage(r *http.Request, path string) Decision {
	token, fromCookie := httpx.BearerToken(r), false
	if token == "" && g.cfg.AccessCookieName != "" {
		if c, err := r.Cookie(g.cfg.AccessCookieName); err == nil && c.Value != "" {
			token, fromCookie = c.Value, true
		}
	}
	public := matchAny(path, g.cfg.PublicPaths)

	if token == "" {
		if public {
			return Decision{Action: Allow}
		}
		return Decision{Action: RedirectLogin, Location: g.loginURL(r)}
	}

	id := g.identity(token, fromCookie)
	if id == nil {
		if public {
			return Decision{Action: Allow}
		}
		return Decision{Action: RedirectLogin, Location: g.loginURL(r), ClearCookie: fromCookie}
	}

	if matchAny(path, g.cfg.AuthOnlyPaths) {
		return Decision{Action: RedirectDashboard, Location: g.cfg.DashboardPath, Identity: id}
	}
	if matchAny(path, g.cfg.AdminPaths) && !id.Claims.Role.IsAdmin() {
		return Decision{Action: RedirectDashboard, Location: g.cfg.DashboardPath, Identity: id}
	}
	return Decision{Action: Allow, Identity: id}
}

func (g *Gate) identity(token string, fromCookie bool) *Identity {
	if token == "" {
		return nil
	}
	claims, err := g.verifier.Verify(token)
	if err != nil {
		return nil
	}
	return &Identity{Claims: claims, FromCookie: fromCookie}
}

func (g *Gate) loginURL(r *http.Request) string {
	q := url.Values{}
	q.Set(g.cfg.CallbackParam, r.URL.RequestURI())
	return g.cfg.LoginPath + "?" + q.Encode()
}

func (g *Gate) apiPrefix(path string) (string, bool) {
	for _, p := range g.cfg.APIPrefixes {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return p, true
		}
	}
	return "", false
}

// matchAny reports whether path equals an entry or lies below it.
func matchAny(path string, entries []string) bool {
	for _, e := range entries {
		if path == e {
			return true
		}
		if e != "/" && strings.HasPrefix(path, strings.TrimSuffix(e, "/")+"/") {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

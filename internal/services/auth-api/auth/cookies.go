package auth

import (
	"net/http"

	"github.com/NordCoder/Warden/internal/apperr"
)

func (c *Controller) setSession(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookies.Name,
		Value:    s.RefreshToken,
		Path:     c.cookies.Path,
		Domain:   c.cookies.Domain,
		MaxAge:   int(c.cookies.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if c.cookies.MirrorAccess {
		http.SetCookie(w, &http.Cookie{
			Name:     c.cookies.AccessName,
			Value:    s.AccessToken,
			Path:     c.cookies.Path,
			Domain:   c.cookies.Domain,
			MaxAge:   int(c.cookies.AccessTTL.Seconds()),
			Secure:   c.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (c *Controller) clearSession(w http.ResponseWriter) {
	for _, name := range []string{c.cookies.Name, c.cookies.AccessName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     c.cookies.Path,
			Domain:   c.cookies.Domain,
			MaxAge:   -1,
			HttpOnly: name == c.cookies.Name,
			Secure:   c.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (c *Controller) refreshCookie(r *http.Request) string {
	ck, err := r.Cookie(c.cookies.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func httpStatus(err error) int {
	return apperr.HTTPStatus(apperr.KindOf(err))
}

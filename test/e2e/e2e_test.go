//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type cfg struct {
	APIBase     string // http://localhost:8080
	MailhogBase string // http://localhost:8025
	WaitEmail   time.Duration
}

func loadCfg() cfg {
	return cfg{
		APIBase:     getenv("E2E_API_BASE", "http://localhost:8080"),
		MailhogBase: getenv("E2E_MAILHOG_BASE", "http://localhost:8025"),
		WaitEmail:   mustParseDur(getenv("E2E_WAIT_EMAIL", "30s")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustParseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type sessionData struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		IsVerified bool   `json:"isVerified"`
	} `json:"user"`
}

type mailhogMessages struct {
	Total    int          `json:"total"`
	Messages []mailhogMsg `json:"items"`
}

type mailhogMsg struct {
	To      []mailhogPerson `json:"To"`
	Content struct {
		Headers map[string][]string `json:"Headers"`
		Body    string              `json:"Body"`
	} `json:"Content"`
}

type mailhogPerson struct {
	Mailbox string `json:"Mailbox"`
	Domain  string `json:"Domain"`
}

func (p mailhogPerson) Email() string {
	if p.Domain == "" {
		return p.Mailbox
	}
	return p.Mailbox + "@" + p.Domain
}

type response struct {
	status  int
	body    envelope
	raw     string
	cookies []*http.Cookie
}

func (r response) cookie(name string) *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func post(t *testing.T, url string, in any, cookie *http.Cookie) response {
	t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(http.MethodPost, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := response{status: resp.StatusCode, raw: string(raw), cookies: resp.Cookies()}
	require.NoError(t, json.Unmarshal(raw, &out.body), "body=%s", raw)
	return out
}

func session(t *testing.T, r response) sessionData {
	t.Helper()
	var s sessionData
	require.NoError(t, json.Unmarshal(r.body.Data, &s), "body=%s", r.raw)
	return s
}

func waitHealthy(t *testing.T, c cfg) {
	t.Helper()
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(c.APIBase + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(time.Second)
	}
	t.Fatalf("auth-api not healthy at %s", c.APIBase)
}

var tokenLink = regexp.MustCompile(`/(verify-email|reset-password)/([A-Za-z0-9_\-]+)`)

// waitToken polls MailHog for a mail to toEmail whose subject contains subject
// and returns the token from its link.
func waitToken(t *testing.T, c cfg, toEmail, subject string) string {
	t.Helper()
	deadline := time.Now().Add(c.WaitEmail)
	for time.Now().Before(deadline) {
		for _, m := range fetchMailhog(t, c, toEmail) {
			if !strings.Contains(headerFirst(m.Content.Headers, "Subject"), subject) {
				continue
			}
			body := strings.ReplaceAll(m.Content.Body, "=\r\n", "")
			if sm := tokenLink.FindStringSubmatch(body); sm != nil {
				return sm[2]
			}
		}
		time.Sleep(time.Second)
	}
	t.Fatalf("no %q email for %s", subject, toEmail)
	return ""
}

func fetchMailhog(t *testing.T, c cfg, toEmail string) []mailhogMsg {
	t.Helper()
	resp, err := http.Get(c.MailhogBase + "/api/v2/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out mailhogMessages
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	var res []mailhogMsg
	for _, m := range out.Messages {
		for _, rcpt := range m.To {
			if rcpt.Email() == toEmail {
				res = append(res, m)
				break
			}
		}
	}
	return res
}

func headerFirst(h map[string][]string, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func Test_SessionLifecycle(t *testing.T) {
	c := loadCfg()
	waitHealthy(t, c)

	email := fmt.Sprintf("e2e_%d@warden.dev", time.Now().UnixNano())
	pass := "Abc123!@"

	r := post(t, c.APIBase+"/auth/signup", map[string]string{
		"email": email, "password": pass, "firstName": "A", "lastName": "B",
	}, nil)
	require.Equal(t, http.StatusCreated, r.status, r.raw)
	s := session(t, r)
	require.NotEmpty(t, s.AccessToken)
	require.False(t, s.User.IsVerified)
	require.NotContains(t, r.raw, "refreshToken\"")

	r = post(t, c.APIBase+"/auth/login", map[string]string{"email": email, "password": pass}, nil)
	require.Equal(t, http.StatusForbidden, r.status, r.raw)

	token := waitToken(t, c, email, "Verify your email")
	r = post(t, c.APIBase+"/auth/verify-email", map[string]string{"token": token}, nil)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	r = post(t, c.APIBase+"/auth/verify-email", map[string]string{"token": token}, nil)
	require.Equal(t, http.StatusBadRequest, r.status, "verification token is single use")

	r = post(t, c.APIBase+"/auth/login", map[string]string{"email": email, "password": pass}, nil)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	require.NotEmpty(t, session(t, r).AccessToken)
	rt := r.cookie("refreshToken")
	require.NotNil(t, rt)
	require.True(t, rt.HttpOnly)

	r = post(t, c.APIBase+"/auth/refresh", nil, rt)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	rotated := r.cookie("refreshToken")
	require.NotNil(t, rotated)
	require.NotEqual(t, rt.Value, rotated.Value)

	r = post(t, c.APIBase+"/auth/refresh", nil, rt)
	require.Equal(t, http.StatusUnauthorized, r.status, "replayed refresh token must be refused")

	r = post(t, c.APIBase+"/auth/forgot-password", map[string]string{"email": email}, nil)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	known := r.raw
	r = post(t, c.APIBase+"/auth/forgot-password", map[string]string{"email": "nobody_" + email}, nil)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	require.Equal(t, known, r.raw)

	reset := waitToken(t, c, email, "Reset your password")
	newPass := "Xyz789#$"
	r = post(t, c.APIBase+"/auth/reset-password", map[string]string{"token": reset, "newPassword": newPass}, nil)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	r = post(t, c.APIBase+"/auth/refresh", nil, rotated)
	require.Equal(t, http.StatusUnauthorized, r.status, "reset revokes every session")

	r = post(t, c.APIBase+"/auth/login", map[string]string{"email": email, "password": pass}, nil)
	require.Equal(t, http.StatusUnauthorized, r.status)
	r = post(t, c.APIBase+"/auth/login", map[string]string{"email": email, "password": newPass}, nil)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	r = post(t, c.APIBase+"/auth/logout", nil, r.cookie("refreshToken"))
	require.Equal(t, http.StatusOK, r.status, r.raw)
}

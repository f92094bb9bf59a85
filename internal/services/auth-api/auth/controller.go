package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/httpx"
)

type CookieOpts struct {
	Name       string
	Domain     string
	Path       string
	Secure     bool
	RefreshTTL time.Duration
	// MirrorAccess also sets a script-readable access token cookie for the
	// request gate. It is never trusted for mutations.
	MirrorAccess bool
	AccessName   string
	AccessTTL    time.Duration
}

type Opts struct {
	Logger     *zap.Logger
	Cookies    CookieOpts
	TrustProxy bool
}

type Controller struct {
	uc         *Usecase
	log        *zap.Logger
	cookies    CookieOpts
	trustProxy bool
}

func NewController(uc *Usecase, o Opts) *Controller {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.Cookies.Name == "" {
		o.Cookies.Name = "refreshToken"
	}
	if o.Cookies.Path == "" {
		o.Cookies.Path = "/"
	}
	if o.Cookies.AccessName == "" {
		o.Cookies.AccessName = "accessToken"
	}
	return &Controller{
		uc:         uc,
		log:        log.With(zap.String("component", "auth.controller")),
		cookies:    o.Cookies,
		trustProxy: o.TrustProxy,
	}
}

func (c *Controller) Register(r *mux.Router) {
	s := r.PathPrefix("/auth").Subrouter()
	s.HandleFunc("/signup", c.signUp).Methods(http.MethodPost)
	s.HandleFunc("/login", c.login).Methods(http.MethodPost)
	s.HandleFunc("/logout", c.logout).Methods(http.MethodPost)
	s.HandleFunc("/refresh-token", c.refresh).Methods(http.MethodPost)
	s.HandleFunc("/verify-email", c.verifyEmail).Methods(http.MethodPost)
	s.HandleFunc("/forgot-password", c.forgotPassword).Methods(http.MethodPost)
	s.HandleFunc("/reset-password", c.resetPassword).Methods(http.MethodPost)
	s.HandleFunc("/verify-token", c.verifyToken).Methods(http.MethodGet)
}

type signUpRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type sessionResponse struct {
	User        user.View `json:"user"`
	AccessToken string    `json:"accessToken"`
}

type accessResponse struct {
	AccessToken string `json:"accessToken"`
}

type userResponse struct {
	User *user.View `json:"user"`
}

func (c *Controller) meta(r *http.Request) Meta {
	return Meta{IP: httpx.ClientIP(r, c.trustProxy), UserAgent: r.UserAgent()}
}

func (c *Controller) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	s, err := c.uc.SignUp(r.Context(), SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, c.meta(r))
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	c.setSession(w, s)
	httpx.WriteSuccess(w, http.StatusCreated, sessionResponse{User: s.User, AccessToken: s.AccessToken}, "User created successfully")
}

func (c *Controller) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	s, err := c.uc.Login(r.Context(), req.Email, req.Password, c.meta(r))
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	c.setSession(w, s)
	httpx.WriteSuccess(w, http.StatusOK, sessionResponse{User: s.User, AccessToken: s.AccessToken}, "Login successful")
}

func (c *Controller) logout(w http.ResponseWriter, r *http.Request) {
	err := c.uc.Logout(r.Context(), c.refreshCookie(r), c.meta(r))
	c.clearSession(w)
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, nil, "Logged out successfully")
}

func (c *Controller) refresh(w http.ResponseWriter, r *http.Request) {
	s, err := c.uc.Refresh(r.Context(), c.refreshCookie(r), c.meta(r))
	if err != nil {
		if httpStatus(err) == http.StatusUnauthorized {
			c.clearSession(w)
		}
		httpx.WriteError(w, r, c.log, err)
		return
	}
	c.setSession(w, s)
	httpx.WriteSuccess(w, http.StatusOK, accessResponse{AccessToken: s.AccessToken}, "")
}

func (c *Controller) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	if err := c.uc.VerifyEmail(r.Context(), req.Token, c.meta(r)); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, nil, "Email verified successfully")
}

func (c *Controller) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	if err := c.uc.ForgotPassword(r.Context(), req.Email, c.meta(r)); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{}, ForgotPasswordMessage)
}

func (c *Controller) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	if err := c.uc.ResetPassword(r.Context(), req.Token, req.NewPassword, c.meta(r)); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, nil, "Password has been reset successfully")
}

func (c *Controller) verifyToken(w http.ResponseWriter, r *http.Request) {
	v, err := c.uc.VerifyToken(r.Context(), httpx.BearerToken(r))
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, userResponse{User: v}, "")
}

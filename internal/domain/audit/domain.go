package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionUserSignup               Action = "USER_SIGNUP"
	ActionUserLogin                Action = "USER_LOGIN"
	ActionLoginFailed              Action = "LOGIN_FAILED"
	ActionUserLogout               Action = "USER_LOGOUT"
	ActionTokenRefreshFailed       Action = "TOKEN_REFRESH_FAILED"
	ActionEmailVerificationSuccess Action = "EMAIL_VERIFICATION_SUCCESS"
	ActionEmailVerificationFailed  Action = "EMAIL_VERIFICATION_FAILED"
	ActionPasswordResetRequested   Action = "PASSWORD_RESET_REQUESTED"
	ActionPasswordResetSuccess     Action = "PASSWORD_RESET_SUCCESS"
	ActionPasswordResetFailed      Action = "PASSWORD_RESET_FAILED"
)

type Event struct {
	ID          string
	UserID      *string
	Action      Action
	Description string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}

type Repo interface {
	Create(ctx context.Context, e *Event) error
}

package auth

import (
	"time"

	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// RequestCodeRequest starts a portal login.
type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

// RequestCodeResponse tells the member where to look for the code.
type RequestCodeResponse struct {
	Channel   enums.NotificationChannel `json:"channel"`
	Phone     string                    `json:"phone"`
	ExpiresIn int                       `json:"expires_in"`
}

// VerifyCodeRequest completes a portal login with the one-time code.
type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// LoginResponse carries the signed session. The token only ever leaves in the cookie.
type LoginResponse struct {
	Token     string          `json:"-"`
	ExpiresAt time.Time       `json:"expires_at"`
	Member    *members.Member `json:"member"`
}

// OpsLoginRequest is the shared ops dashboard password.
type OpsLoginRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// OpsLoginResponse carries the static ops token for the cookie.
type OpsLoginResponse struct {
	Token string `json:"-"`
}

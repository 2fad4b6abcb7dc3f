package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	pkgAuth "github.com/freshkit/freshkit-backend/pkg/auth"
	"github.com/freshkit/freshkit-backend/pkg/auth/session"
	"github.com/freshkit/freshkit-backend/pkg/config"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/phone"
	"github.com/freshkit/freshkit-backend/pkg/security"
	"github.com/google/uuid"
)

const (
	invalidCodeMessage        = "invalid or expired code"
	invalidLinkMessage        = "invalid or expired link"
	invalidCredentialsMessage = "invalid credentials"

	// MagicLinkPath is the API route that redeems a magic-link token.
	MagicLinkPath = "/api/v1/auth/magic"
)

// Service defines the member portal login and the ops dashboard login.
type Service interface {
	RequestCode(ctx context.Context, req RequestCodeRequest) (*RequestCodeResponse, error)
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (*LoginResponse, error)
	VerifyMagicLink(ctx context.Context, token string) (*LoginResponse, error)
	Session(ctx context.Context, memberID string) (*members.Member, error)
	// SendMagicLink is the ops action that sends a member a fresh dashboard link.
	SendMagicLink(ctx context.Context, memberID string) (*notify.Outcome, error)
	OpsLogin(ctx context.Context, req OpsLoginRequest) (*OpsLoginResponse, error)
}

type codeManager interface {
	Issue(ctx context.Context, phone string) (string, error)
	Verify(ctx context.Context, phone, code string) error
	TTL() time.Duration
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Members  members.Repository
	Codes    codeManager
	Notifier notify.Dispatcher
	Audit    audit.Recorder
	Logger   *logger.Logger
	App      config.AppConfig
	Session  config.SessionConfig
	Login    config.LoginConfig
	Ops      config.OpsConfig
}

type service struct {
	members  members.Repository
	codes    codeManager
	notifier notify.Dispatcher
	audit    audit.Recorder
	logg     *logger.Logger
	app      config.AppConfig
	session  config.SessionConfig
	login    config.LoginConfig
	ops      config.OpsConfig
	now      func() time.Time
	newToken func() string
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if params.Codes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "code manager required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	login := params.Login
	if login.MagicLinkTTL <= 0 {
		login.MagicLinkTTL = 24 * time.Hour
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Noop{}
	}
	return &service{
		members:  params.Members,
		codes:    params.Codes,
		notifier: params.Notifier,
		audit:    recorder,
		logg:     params.Logger,
		app:      params.App,
		session:  params.Session,
		login:    login,
		ops:      params.Ops,
		now:      time.Now,
		newToken: uuid.NewString,
	}, nil
}

// RequestCode issues a one-time code and a magic link and sends both in one message.
func (s *service) RequestCode(ctx context.Context, req RequestCodeRequest) (*RequestCodeResponse, error) {
	normalized, err := phone.Normalize(req.Phone, s.login.DefaultCountryCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid phone number")
	}
	ctx = s.logg.WithField(ctx, "phone", phone.Mask(normalized))

	member, err := s.members.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, airtable.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no member with that phone number")
		}
		return nil, airtable.MapError(err, "member")
	}
	if !member.Status.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "membership has been cancelled")
	}

	code, err := s.codes.Issue(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue login code")
	}
	link, err := s.storeMagicLink(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	outcome := s.notifier.Notify(ctx, recipientOf(member), notify.LoginCode(member.Name, code, link, s.codes.TTL()))
	if !outcome.Delivered() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not deliver login code")
	}
	s.logg.Info(ctx, "auth.code_sent")
	return &RequestCodeResponse{
		Channel:   outcome.Channel,
		Phone:     phone.Mask(normalized),
		ExpiresIn: int(s.codes.TTL().Seconds()),
	}, nil
}

func (s *service) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*LoginResponse, error) {
	normalized, err := phone.Normalize(req.Phone, s.login.DefaultCountryCode)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}
	if err := s.codes.Verify(ctx, normalized, req.Code); err != nil {
		if errors.Is(err, session.ErrInvalidCode) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify login code")
	}

	member, err := s.members.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, airtable.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
		}
		return nil, airtable.MapError(err, "member")
	}
	if !member.Status.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "membership has been cancelled")
	}
	return s.issueSession(ctx, member, pkgAuth.MethodCode)
}

// VerifyMagicLink redeems a link token once; the token is cleared on success.
func (s *service) VerifyMagicLink(ctx context.Context, token string) (*LoginResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLinkMessage)
	}
	member, err := s.members.FindByLoginToken(ctx, token)
	if err != nil {
		if errors.Is(err, airtable.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLinkMessage)
		}
		return nil, airtable.MapError(err, "member")
	}
	if member.TokenExpiry == nil || !s.now().Before(*member.TokenExpiry) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLinkMessage)
	}
	if !member.Status.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "membership has been cancelled")
	}
	if _, err := s.members.Update(ctx, member.ID, members.Update{ClearLoginToken: true}); err != nil {
		return nil, airtable.MapError(err, "member")
	}
	return s.issueSession(ctx, member, pkgAuth.MethodMagicLink)
}

func (s *service) Session(ctx context.Context, memberID string) (*members.Member, error) {
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		if errors.Is(err, airtable.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session no longer valid")
		}
		return nil, airtable.MapError(err, "member")
	}
	return member, nil
}

func (s *service) SendMagicLink(ctx context.Context, memberID string) (*notify.Outcome, error) {
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	if !member.Status.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "membership has been cancelled")
	}
	link, err := s.storeMagicLink(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	outcome := s.notifier.Notify(ctx, recipientOf(member), notify.MagicLink(member.Name, link))
	s.audit.Record(ctx, audit.Entry{
		Action:     "member.magic_link_sent",
		EntityType: "member",
		EntityID:   member.ID,
		Details:    map[string]any{"channel": string(outcome.Channel)},
	})
	return &outcome, nil
}

// OpsLogin checks the shared dashboard password. A configured argon2 hash
// wins over the plain value.
func (s *service) OpsLogin(ctx context.Context, req OpsLoginRequest) (*OpsLoginResponse, error) {
	var ok bool
	if hash := strings.TrimSpace(s.ops.PasswordHash); hash != "" {
		valid, err := security.VerifyPassword(req.Password, hash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify ops password")
		}
		ok = valid
	} else {
		ok = security.EqualSecret(req.Password, s.ops.Password)
	}
	if !ok || s.ops.Token == "" {
		s.logg.Warn(ctx, "auth.ops_login_failed")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.audit.Record(audit.WithActor(ctx, audit.ActorOps), audit.Entry{
		Action:     "ops.login",
		EntityType: "ops",
	})
	return &OpsLoginResponse{Token: s.ops.Token}, nil
}

func (s *service) issueSession(ctx context.Context, member *members.Member, method string) (*LoginResponse, error) {
	now := s.now().UTC()
	token, err := pkgAuth.MintSessionToken(s.session, now, member.ID, method)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"member_id": member.ID, "method": method}), "auth.session_issued")
	return &LoginResponse{
		Token:     token,
		ExpiresAt: now.Add(s.session.TTL),
		Member:    member,
	}, nil
}

// storeMagicLink writes a fresh single-use token on the member and returns its URL.
func (s *service) storeMagicLink(ctx context.Context, memberID string) (string, error) {
	token := s.newToken()
	expiry := s.now().UTC().Add(s.login.MagicLinkTTL)
	if _, err := s.members.Update(ctx, memberID, members.Update{LoginToken: &token, TokenExpiry: &expiry}); err != nil {
		return "", airtable.MapError(err, "member")
	}
	return s.app.PortalURL(MagicLinkPath) + "?token=" + url.QueryEscape(token), nil
}

func recipientOf(m *members.Member) notify.Recipient {
	return notify.Recipient{Name: m.Name, Phone: m.Phone, Email: m.Email}
}

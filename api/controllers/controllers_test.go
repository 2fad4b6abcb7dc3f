package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkit/freshkit-backend/api/middleware"
	"github.com/freshkit/freshkit-backend/internal/auth"
	"github.com/freshkit/freshkit-backend/internal/billing"
	"github.com/freshkit/freshkit-backend/internal/checkout"
	"github.com/freshkit/freshkit-backend/internal/content"
	"github.com/freshkit/freshkit-backend/internal/cron"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

type stubAuth struct {
	auth.Service
	requestFn func(ctx context.Context, req auth.RequestCodeRequest) (*auth.RequestCodeResponse, error)
	verifyFn  func(ctx context.Context, req auth.VerifyCodeRequest) (*auth.LoginResponse, error)
	magicFn   func(ctx context.Context, token string) (*auth.LoginResponse, error)
	sessionFn func(ctx context.Context, memberID string) (*members.Member, error)
}

func (s stubAuth) RequestCode(ctx context.Context, req auth.RequestCodeRequest) (*auth.RequestCodeResponse, error) {
	return s.requestFn(ctx, req)
}

func (s stubAuth) VerifyCode(ctx context.Context, req auth.VerifyCodeRequest) (*auth.LoginResponse, error) {
	return s.verifyFn(ctx, req)
}

func (s stubAuth) VerifyMagicLink(ctx context.Context, token string) (*auth.LoginResponse, error) {
	return s.magicFn(ctx, token)
}

func (s stubAuth) Session(ctx context.Context, memberID string) (*members.Member, error) {
	return s.sessionFn(ctx, memberID)
}

type stubCheckout struct {
	checkout.Service
	createFn func(ctx context.Context, input checkout.SessionInput, key string) (*checkout.Session, error)
}

func (s stubCheckout) CreateSession(ctx context.Context, input checkout.SessionInput, key string) (*checkout.Session, error) {
	return s.createFn(ctx, input, key)
}

type stubBilling struct {
	billing.Service
	calls []string
}

func (s *stubBilling) Pause(context.Context, string) (*billing.Result, error) {
	s.calls = append(s.calls, "pause")
	return &billing.Result{Status: enums.MemberStatusPaused}, nil
}

func (s *stubBilling) Resume(context.Context, string) (*billing.Result, error) {
	s.calls = append(s.calls, "resume")
	return &billing.Result{Status: enums.MemberStatusActive}, nil
}

func (s *stubBilling) Cancel(_ context.Context, memberID string) (*billing.Result, error) {
	s.calls = append(s.calls, "cancel:"+memberID)
	cancelsAt := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	return &billing.Result{Status: enums.MemberStatusActive, CancelsAt: &cancelsAt}, nil
}

type stubDrops struct {
	drops.Service
	createFn func(ctx context.Context, memberID string, input drops.MemberDropInput) (*drops.Drop, error)
}

func (s stubDrops) CreateForMember(ctx context.Context, memberID string, input drops.MemberDropInput) (*drops.Drop, error) {
	return s.createFn(ctx, memberID, input)
}

type stubContent struct {
	content.Service
}

func (stubContent) GetPage(_ context.Context, page string) (*content.Page, error) {
	return &content.Page{Page: page, Fallback: true}, nil
}

type stubCron struct {
	results []cron.Result
	err     error
	got     string
}

func (s *stubCron) Trigger(_ context.Context, name string) ([]cron.Result, error) {
	s.got = name
	return s.results, s.err
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{CookieName: "fk_session", TTL: time.Hour}
}

func serve(method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asMember(req *http.Request, memberID string) *http.Request {
	return req.WithContext(middleware.WithMemberID(req.Context(), memberID))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthRequestCode(t *testing.T) {
	var got auth.RequestCodeRequest
	svc := stubAuth{requestFn: func(_ context.Context, req auth.RequestCodeRequest) (*auth.RequestCodeResponse, error) {
		got = req
		return &auth.RequestCodeResponse{Channel: enums.NotificationChannelWhatsApp, Phone: "+447700900123", ExpiresIn: 600}, nil
	}}

	rec := serve(http.MethodPost, "/request-code", AuthRequestCode(svc, testLogger()),
		jsonRequest(http.MethodPost, "/request-code", `{"phone":"07700 900123"}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "07700 900123", got.Phone)
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(600), data["expires_in"])
}

func TestAuthRequestCodeRejectsUnknownFields(t *testing.T) {
	svc := stubAuth{requestFn: func(context.Context, auth.RequestCodeRequest) (*auth.RequestCodeResponse, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}

	rec := serve(http.MethodPost, "/request-code", AuthRequestCode(svc, testLogger()),
		jsonRequest(http.MethodPost, "/request-code", `{"phone":"07700900123","admin":true}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthVerifySetsSessionCookie(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	svc := stubAuth{verifyFn: func(_ context.Context, req auth.VerifyCodeRequest) (*auth.LoginResponse, error) {
		assert.Equal(t, "123456", req.Code)
		return &auth.LoginResponse{
			Token:     "signed.jwt.token",
			ExpiresAt: expires,
			Member:    &members.Member{ID: "recM1", Name: "Sam"},
		}, nil
	}}

	rec := serve(http.MethodPost, "/verify", AuthVerify(svc, testSessionConfig(), testLogger()),
		jsonRequest(http.MethodPost, "/verify", `{"phone":"07700900123","code":"123456"}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := findCookie(rec, "fk_session")
	require.NotNil(t, cookie)
	assert.Equal(t, "signed.jwt.token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotContains(t, rec.Body.String(), "signed.jwt.token")
	assert.Contains(t, rec.Body.String(), `"id":"recM1"`)
}

func TestAuthVerifyRejectsMalformedCode(t *testing.T) {
	svc := stubAuth{}

	rec := serve(http.MethodPost, "/verify", AuthVerify(svc, testSessionConfig(), testLogger()),
		jsonRequest(http.MethodPost, "/verify", `{"phone":"07700900123","code":"12ab"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, findCookie(rec, "fk_session"))
}

func TestAuthMagicRedirects(t *testing.T) {
	app := config.AppConfig{SiteURL: "https://freshkit.test/"}

	t.Run("valid link lands on the portal", func(t *testing.T) {
		svc := stubAuth{magicFn: func(_ context.Context, token string) (*auth.LoginResponse, error) {
			assert.Equal(t, "abc", token)
			return &auth.LoginResponse{Token: "signed", ExpiresAt: time.Now().Add(time.Hour)}, nil
		}}

		rec := serve(http.MethodGet, "/magic", AuthMagic(svc, testSessionConfig(), app, testLogger()),
			httptest.NewRequest(http.MethodGet, "/magic?token=abc", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://freshkit.test/portal", rec.Header().Get("Location"))
		require.NotNil(t, findCookie(rec, "fk_session"))
	})

	t.Run("expired link lands on login", func(t *testing.T) {
		svc := stubAuth{magicFn: func(context.Context, string) (*auth.LoginResponse, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "magic link expired")
		}}

		rec := serve(http.MethodGet, "/magic", AuthMagic(svc, testSessionConfig(), app, testLogger()),
			httptest.NewRequest(http.MethodGet, "/magic?token=stale", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://freshkit.test/login?error=link_expired", rec.Header().Get("Location"))
		assert.Nil(t, findCookie(rec, "fk_session"))
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		svc := stubAuth{magicFn: func(context.Context, string) (*auth.LoginResponse, error) {
			return nil, pkgerrors.Dependency("redis", errors.New("down"))
		}}

		rec := serve(http.MethodGet, "/magic", AuthMagic(svc, testSessionConfig(), app, testLogger()),
			httptest.NewRequest(http.MethodGet, "/magic?token=abc", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAuthLogoutClearsCookie(t *testing.T) {
	rec := serve(http.MethodPost, "/logout", AuthLogout(testSessionConfig()),
		httptest.NewRequest(http.MethodPost, "/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, "fk_session")
	require.NotNil(t, cookie)
	assert.Equal(t, "", cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestAuthSessionUsesContextMember(t *testing.T) {
	svc := stubAuth{sessionFn: func(_ context.Context, memberID string) (*members.Member, error) {
		return &members.Member{ID: memberID, Name: "Sam"}, nil
	}}

	req := asMember(httptest.NewRequest(http.MethodGet, "/session", nil), "recM9")
	rec := serve(http.MethodGet, "/session", AuthSession(svc, testLogger()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "recM9", data["member"].(map[string]any)["id"])
}

func TestCheckoutPassesIdempotencyKey(t *testing.T) {
	var gotKey string
	svc := stubCheckout{createFn: func(_ context.Context, input checkout.SessionInput, key string) (*checkout.Session, error) {
		gotKey = key
		assert.Equal(t, "starter", input.Tier)
		return &checkout.Session{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
	}}
	req := jsonRequest(http.MethodPost, "/checkout",
		`{"tier":"starter","gym":"PG01","name":"Sam","email":"sam@example.com","phone":"07700900123"}`)
	req.Header.Set(middleware.IdempotencyHeader, "key-1")

	rec := serve(http.MethodPost, "/checkout", Checkout(svc, testLogger()), req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "key-1", gotKey)
	assert.Contains(t, rec.Body.String(), "https://checkout.stripe.test/cs_1")
}

func TestCheckoutValidatesEmail(t *testing.T) {
	svc := stubCheckout{}

	rec := serve(http.MethodPost, "/checkout", Checkout(svc, testLogger()),
		jsonRequest(http.MethodPost, "/checkout", `{"tier":"starter","gym":"PG01","name":"Sam","email":"nope","phone":"07700900123"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutWithoutService(t *testing.T) {
	rec := serve(http.MethodPost, "/checkout", Checkout(nil, testLogger()),
		jsonRequest(http.MethodPost, "/checkout", `{}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPortalSubscriptionDispatchesAction(t *testing.T) {
	svc := &stubBilling{}

	for _, action := range []string{SubscriptionPause, SubscriptionResume, SubscriptionCancel} {
		req := asMember(httptest.NewRequest(http.MethodPost, "/subscription/"+action, nil), "recM1")
		rec := serve(http.MethodPost, "/subscription/"+action, PortalSubscription(svc, action, testLogger()), req)
		require.Equal(t, http.StatusOK, rec.Code, action)
	}

	assert.Equal(t, []string{"pause", "resume", "cancel:recM1"}, svc.calls)
}

func TestPortalSubscriptionUnknownAction(t *testing.T) {
	req := asMember(httptest.NewRequest(http.MethodPost, "/subscription/upgrade", nil), "recM1")
	rec := serve(http.MethodPost, "/subscription/upgrade", PortalSubscription(&stubBilling{}, "upgrade", testLogger()), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortalRequiresMemberContext(t *testing.T) {
	rec := serve(http.MethodPost, "/subscription/pause", PortalSubscription(&stubBilling{}, SubscriptionPause, testLogger()),
		httptest.NewRequest(http.MethodPost, "/subscription/pause", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortalCreateDropUsesSessionMember(t *testing.T) {
	var gotMember string
	svc := stubDrops{createFn: func(_ context.Context, memberID string, input drops.MemberDropInput) (*drops.Drop, error) {
		gotMember = memberID
		return &drops.Drop{ID: "recD1", BagNumber: input.BagNumber, Status: enums.DropStatusDropped}, nil
	}}
	req := asMember(jsonRequest(http.MethodPost, "/drops", `{"bag_number":"FK-0042"}`), "recM1")

	rec := serve(http.MethodPost, "/drops", PortalCreateDrop(svc, testLogger()), req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "recM1", gotMember)
	assert.Contains(t, rec.Body.String(), `"FK-0042"`)
}

func TestPortalCreateDropNoAllowance(t *testing.T) {
	svc := stubDrops{createFn: func(context.Context, string, drops.MemberDropInput) (*drops.Drop, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no drops remaining")
	}}
	req := asMember(jsonRequest(http.MethodPost, "/drops", `{"bag_number":"FK-0042"}`), "recM1")

	rec := serve(http.MethodPost, "/drops", PortalCreateDrop(svc, testLogger()), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCronRun(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubCron{results: []cron.Result{{Job: "sla-check", OK: true}}}

		rec := serve(http.MethodPost, "/cron/{job}", CronRun(svc, testLogger()),
			httptest.NewRequest(http.MethodPost, "/cron/sla-check", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sla-check", svc.got)
		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		assert.Equal(t, true, data["ok"])
	})

	t.Run("job failure reports results", func(t *testing.T) {
		svc := &stubCron{
			results: []cron.Result{{Job: "unreturned-bags", OK: false, Error: "airtable: 429"}},
			err:     errors.New("1 cron job failed"),
		}

		rec := serve(http.MethodPost, "/cron/{job}", CronRun(svc, testLogger()),
			httptest.NewRequest(http.MethodPost, "/cron/unreturned-bags", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		assert.Equal(t, false, data["ok"])
		assert.Len(t, data["results"], 1)
	})

	t.Run("unknown job", func(t *testing.T) {
		svc := &stubCron{err: pkgerrors.New(pkgerrors.CodeNotFound, "unknown cron job")}

		rec := serve(http.MethodGet, "/cron/{job}", CronRun(svc, testLogger()),
			httptest.NewRequest(http.MethodGet, "/cron/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := serve(http.MethodGet, "/ready", HealthReady(cfg, testLogger(), pinger{}),
		httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(http.MethodGet, "/ready", HealthReady(cfg, testLogger(), pinger{err: errors.New("refused")}),
		httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPublicContentUsesPageParam(t *testing.T) {
	rec := serve(http.MethodGet, "/content/{page}", PublicContent(stubContent{}, testLogger()),
		httptest.NewRequest(http.MethodGet, "/content/how-it-works", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "how-it-works", data["page"])
	assert.Equal(t, true, data["fallback"])
}

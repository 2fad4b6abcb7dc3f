package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSenderFallsBackToNoop(t *testing.T) {
	buf := &bytes.Buffer{}
	sender := NewSender(config.ResendConfig{}, logger.New(logger.Options{ServiceName: "test", Output: buf}))
	_, ok := sender.(*NoopSender)
	require.True(t, ok)

	id, err := sender.Send(context.Background(), Email{To: []string{"a@example.com"}, Subject: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "noop", id)
	assert.Contains(t, buf.String(), "email.noop_send")
}

func TestResendSenderPostsEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "FreshKit <hello@freshkit.test>", body["from"])
		assert.Equal(t, "Your kit is ready", body["subject"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	sender := NewResendSender("re_test", "FreshKit <hello@freshkit.test>")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	sender.client.BaseURL = base

	id, err := sender.Send(context.Background(), Email{
		To:      []string{"member@example.com"},
		Subject: "Your kit is ready",
		HTML:    "<p>Ready</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "email_123", id)
}

func TestResendSenderRequiresRecipient(t *testing.T) {
	sender := NewResendSender("re_test", "from@example.com")
	_, err := sender.Send(context.Background(), Email{Subject: "x"})
	require.Error(t, err)
}

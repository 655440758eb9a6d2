package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eek-site/eek-sub001/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewGraphMailerRequiresCredentials(t *testing.T) {
	_, err := NewGraphMailer(config.MailConfig{})
	assert.Error(t, err)

	m, err := NewGraphMailer(liveMailConfig())
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestGraphMailerSend(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := &GraphMailer{
		cfg:     liveMailConfig(),
		tokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", Expiry: time.Now().Add(time.Hour)}),
		client:  srv.Client(),
		baseURL: srv.URL,
	}

	err := m.Send(context.Background(), "to@example.nz", "Subject", "<b>hi</b>", true)
	require.NoError(t, err)

	assert.Equal(t, "/users/noreply@example.nz/sendMail", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)

	msg := gotBody["message"].(map[string]any)
	assert.Equal(t, "Subject", msg["subject"])
	body := msg["body"].(map[string]any)
	assert.Equal(t, "HTML", body["contentType"])
}

func TestGraphMailerSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"InvalidRecipient"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	m := &GraphMailer{
		cfg:     liveMailConfig(),
		tokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t", Expiry: time.Now().Add(time.Hour)}),
		client:  srv.Client(),
		baseURL: srv.URL,
	}

	err := m.Send(context.Background(), "bad@example.nz", "s", "b", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

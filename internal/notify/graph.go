package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eek-site/eek-sub001/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphMailer sends mail through Microsoft Graph using client-credentials
// auth. The oauth2 token source caches the token and refreshes it before
// expiry; no manual cache is kept here.
type GraphMailer struct {
	cfg     config.MailConfig
	tokens  oauth2.TokenSource
	client  *http.Client
	baseURL string
}

func NewGraphMailer(cfg config.MailConfig) (*GraphMailer, error) {
	if cfg.Demo() {
		return nil, fmt.Errorf("mail credentials are not configured")
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &GraphMailer{
		cfg:     cfg,
		tokens:  cc.TokenSource(context.Background()),
		client:  &http.Client{Timeout: timeout},
		baseURL: graphBaseURL,
	}, nil
}

type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []graphRecipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// Send posts a sendMail request from the fixed configured mailbox.
func (m *GraphMailer) Send(ctx context.Context, to, subject, body string, html bool) error {
	token, err := m.tokens.Token()
	if err != nil {
		return fmt.Errorf("acquire graph token: %w", err)
	}

	var msg graphMessage
	msg.Message.Subject = subject
	msg.Message.Body.Content = body
	if html {
		msg.Message.Body.ContentType = "HTML"
	} else {
		msg.Message.Body.ContentType = "Text"
	}
	var rcpt graphRecipient
	rcpt.EmailAddress.Address = to
	msg.Message.ToRecipients = []graphRecipient{rcpt}
	msg.SaveToSentItems = false

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode graph message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", m.baseURL, m.cfg.FromAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph send rejected: %d %s", resp.StatusCode, string(detail))
	}
	return nil
}

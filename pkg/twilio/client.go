package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/go-resty/resty/v2"
)

const (
	whatsAppPrefix = "whatsapp:"
	messagesPath   = "/2010-04-01/Accounts/{sid}/Messages.json"
)

// ErrDisabled is returned when no WhatsApp sender is configured.
var ErrDisabled = errors.New("twilio: whatsapp sender not configured")

// Message is the accepted message as reported by the Messages API.
type Message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// APIError mirrors the Messages API error body.
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: status %d code %d: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) StatusCode() int { return e.Status }

func (e *APIError) Provider() string { return "twilio" }

// Client sends WhatsApp messages through the Twilio REST API.
type Client struct {
	http    *resty.Client
	sid     string
	from    string
	enabled bool
}

func NewClient(cfg config.TwilioConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		sid:     cfg.AccountSID,
		from:    withPrefix(cfg.WhatsAppFrom),
		enabled: cfg.Enabled(),
	}
}

// Enabled reports whether credentials and a sender are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// SendWhatsApp delivers body to the E.164 number to.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (Message, error) {
	if !c.Enabled() {
		return Message{}, ErrDisabled
	}
	if strings.TrimSpace(to) == "" {
		return Message{}, errors.New("twilio: recipient is required")
	}

	var (
		msg    Message
		apiErr APIError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("sid", c.sid).
		SetFormData(map[string]string{
			"From": c.from,
			"To":   withPrefix(to),
			"Body": body,
		}).
		SetResult(&msg).
		SetError(&apiErr).
		Post(messagesPath)
	if err != nil {
		return Message{}, fmt.Errorf("twilio send: %w", err)
	}
	if resp.IsError() {
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode()
		}
		return Message{}, &apiErr
	}
	return msg, nil
}

func withPrefix(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

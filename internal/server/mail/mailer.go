// Package mail delivers transactional emails: director invitations and
// term-sheet notifications.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/go-resty/resty/v2"
)

// Mailer sends a single message. Callers treat failures as best effort.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, text, html string) error
}

type apiMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// APIMailer posts messages as JSON to an HTTP mail API.
type APIMailer struct {
	client *resty.Client
	from   string
}

func NewAPIMailer(baseURL, apiKey, from string) *APIMailer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &APIMailer{client: client, from: from}
}

func (m *APIMailer) SendMail(ctx context.Context, to, subject, text, html string) error {
	var apiErr apiError
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(apiMessage{From: m.from, To: to, Subject: subject, Text: text, HTML: html}).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("send mail: status %d: %s", resp.StatusCode(), apiErr.Message)
		}
		return fmt.Errorf("send mail: status %d", resp.StatusCode())
	}
	return nil
}

// LogMailer only logs messages. Used when no mail API is configured.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMail(ctx context.Context, to, subject, text, html string) error {
	m.logger.Info(ctx, "mail not sent, no mail API configured", "to", to, "subject", subject)
	return nil
}

package slacknotify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/shared"
	"github.com/slack-go/slack"
)

type SlackNotifier interface {
	// post findings to the webhook, reports whether a message was delivered.  Never fails the caller.
	Notify(ctx context.Context, findings []shared.Finding, sourceFile string) bool
}

type _SlackNotifier struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
	logger     logger.Logger
}

type SlackNotifierInitConfig struct {
	WebhookURL string
	HTTPClient *http.Client
	Now        func() time.Time
	Logger     logger.Logger
}

func Init(config SlackNotifierInitConfig) (SlackNotifier, error) {
	// return errors
	if config.WebhookURL == "" {
		return nil, errors.New("webhook url is not set")
	}
	if config.Logger == nil {
		return nil, errors.New("logger is not set")
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &_SlackNotifier{
		webhookURL: config.WebhookURL,
		client:     client,
		now:        now,
		logger:     config.Logger,
	}, nil
}

func (s *_SlackNotifier) Notify(ctx context.Context, findings []shared.Finding, sourceFile string) bool {
	filtered := FilterAccountFindings(findings)
	s.logger.Infof("filtered [%d] %s findings from slack notification", len(findings)-len(filtered), shared.OrganizationAccountType)
	if len(filtered) == 0 {
		s.logger.Infof("no findings left to report, slack notification skipped")
		return false
	}

	msg := BuildMessage(filtered, sourceFile, s.now())
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		s.logger.Errorf("failed to send slack notification : [%v]", err)
		return false
	}
	s.logger.Infof("sent [%d] non compliant findings to slack (filtered from [%d] total)", len(filtered), len(findings))
	return true
}

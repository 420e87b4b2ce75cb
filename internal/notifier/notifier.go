package notifier

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/reportreader"
	"github.com/outofoffice3/org-guardrails/internal/shared"
	"github.com/outofoffice3/org-guardrails/internal/slacknotify"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusNoFiles Status = "no_files"
	StatusError   Status = "error"
)

// Result is returned to the lambda invoker.
type Result struct {
	Status            Status           `json:"status"`
	Message           string           `json:"message,omitempty"`
	CSVFile           string           `json:"csv_file,omitempty"`
	NonCompliantCount int              `json:"non_compliant_count"`
	NonCompliantItems []shared.Finding `json:"non_compliant_items,omitempty"`
	Notified          bool             `json:"notified"`
}

type Notifier interface {
	// report the non compliant findings of the newest csv.  Failures are part of the result.
	Run(ctx context.Context) Result
}

type _Notifier struct {
	reader reportreader.ReportReader
	slack  slacknotify.SlackNotifier
	logger logger.Logger
}

type NotifierInitConfig struct {
	Reader reportreader.ReportReader
	// optional, nothing is posted without it
	Slack  slacknotify.SlackNotifier
	Logger logger.Logger
}

func Init(config NotifierInitConfig) (Notifier, error) {
	// return errors
	if config.Reader == nil {
		return nil, errors.New("report reader is not set")
	}
	if config.Logger == nil {
		return nil, errors.New("logger is not set")
	}
	return &_Notifier{
		reader: config.Reader,
		slack:  config.Slack,
		logger: config.Logger,
	}, nil
}

func (n *_Notifier) Run(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorf("notifier panicked : [%v]\n%s", r, debug.Stack())
			result = Result{Status: StatusError, Message: fmt.Sprint(r)}
		}
	}()

	result, err := n.run(ctx)
	if err != nil {
		n.logger.Errorf("notifier failed : [%v]", err)
		return Result{Status: StatusError, Message: err.Error()}
	}
	n.logger.Infof("notifier finished with status [%s]", result.Status)
	return result
}

func (n *_Notifier) run(ctx context.Context) (Result, error) {
	key, ok, err := n.reader.LatestCSVKey(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find latest csv file: %w", err)
	}
	if !ok {
		n.logger.Infof("no csv files found")
		return Result{Status: StatusNoFiles, Message: "No CSV files found"}, nil
	}
	n.logger.Infof("processing latest csv file [%s]", key)

	findings, err := n.reader.ReadFindings(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read findings from %s: %w", key, err)
	}

	notified := false
	switch {
	case len(findings) == 0:
		{
			n.logger.Infof("no NON_COMPLIANT items found in [%s]", key)
		}
	case n.slack == nil:
		{
			n.logger.Infof("%s not configured, unable to send notifications", shared.EnvSlackWebhookURL)
		}
	default:
		{
			notified = n.slack.Notify(ctx, findings, key)
		}
	}
	n.logger.Infof("found [%d] NON_COMPLIANT items", len(findings))

	items := findings
	if len(items) > shared.MaxNonCompliantInResult {
		items = items[:shared.MaxNonCompliantInResult]
	}
	return Result{
		Status:            StatusSuccess,
		CSVFile:           key,
		NonCompliantCount: len(findings),
		NonCompliantItems: items,
		Notified:          notified,
	}, nil
}

package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/handle"
	"github.com/outofoffice3/org-guardrails/internal/awsclientmgr"
	"github.com/outofoffice3/org-guardrails/internal/notifier"
	"github.com/outofoffice3/org-guardrails/internal/reportreader"
	"github.com/outofoffice3/org-guardrails/internal/retry"
	"github.com/outofoffice3/org-guardrails/internal/settings"
	"github.com/outofoffice3/org-guardrails/internal/shared"
	"github.com/outofoffice3/org-guardrails/internal/slacknotify"
)

var (
	csvNotifier notifier.Notifier
	sos         logger.Logger
)

func handler(ctx context.Context, event events.CloudWatchEvent) (notifier.Result, error) {
	sos.Debugf("cloudwatch event [%+v]", event)
	return handle.HandleNotifierEvent(ctx, event, csvNotifier, sos), nil
}

func main() {
	lambda.Start(handler)
}

func init() {
	sos = logger.NewConsoleLogger(logger.LogLevelDebug)
	sos.Infof("main init started")

	cfg, err := settings.LoadNotifier(nil)
	if err != nil {
		sos.Errorf("invalid configuration : [%v]", err)
		panic("invalid configuration : " + err.Error())
	}
	sos.Debugf("config bucket name : [%s]", cfg.Bucket)

	// s3 calls are retried by internal/retry with a fixed delay, not by the sdk
	sdkConfig, err := config.LoadDefaultConfig(context.Background(), config.WithRetryMaxAttempts(1))
	if err != nil {
		sos.Errorf("failed to load SDK config, %v", err)
		panic("failed to load sdk config")
	}

	clients, err := awsclientmgr.Init(awsclientmgr.AWSClientMgrInitConfig{
		Cfg:      sdkConfig,
		Services: []awsclientmgr.AWSServiceName{awsclientmgr.S3},
		Logger:   sos,
	})
	if err != nil {
		sos.Errorf("failed to create aws clients : [%v]", err)
		panic("failed to create aws clients")
	}
	s3Client, err := clients.GetS3Client()
	if err != nil {
		panic(err.Error())
	}

	reader, err := reportreader.Init(reportreader.ReportReaderInitConfig{
		Client: s3Client,
		Bucket: cfg.Bucket,
		RetryPolicy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelay,
		},
		Logger: sos,
	})
	if err != nil {
		panic(err.Error())
	}

	notifierConfig := notifier.NotifierInitConfig{
		Reader: reader,
		Logger: sos,
	}
	if cfg.WebhookURL != "" {
		slackNotifier, err := slacknotify.Init(slacknotify.SlackNotifierInitConfig{
			WebhookURL: cfg.WebhookURL,
			HTTPClient: &http.Client{Timeout: cfg.WebhookTimeout},
			Logger:     sos,
		})
		if err != nil {
			panic(err.Error())
		}
		notifierConfig.Slack = slackNotifier
	} else {
		sos.Infof("%s not configured, findings will not be posted", shared.EnvSlackWebhookURL)
	}

	csvNotifier, err = notifier.Init(notifierConfig)
	if err != nil {
		panic(err.Error())
	}
	sos.Infof("main init finished")
}

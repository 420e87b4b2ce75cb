package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/handle"
	"github.com/outofoffice3/org-guardrails/internal/accountlister"
	"github.com/outofoffice3/org-guardrails/internal/awsclientmgr"
	"github.com/outofoffice3/org-guardrails/internal/cfnresponse"
	"github.com/outofoffice3/org-guardrails/internal/reconciler"
	"github.com/outofoffice3/org-guardrails/internal/retry"
	"github.com/outofoffice3/org-guardrails/internal/settings"
	"github.com/outofoffice3/org-guardrails/internal/writer"
)

var (
	permissionsReconciler reconciler.Reconciler
	responseSender        cfnresponse.Sender
	sos                   logger.Logger
)

func handler(ctx context.Context, event cfn.Event) (handle.PermissionsResponse, error) {
	sos.Debugf("custom resource event [%+v]", event)
	return handle.HandlePermissionsEvent(ctx, event, permissionsReconciler, responseSender, sos), nil
}

func main() {
	lambda.Start(handler)
}

func init() {
	sos = logger.NewConsoleLogger(logger.LogLevelDebug)
	sos.Infof("main init started")

	cfg, err := settings.LoadPermissions(nil)
	if err != nil {
		sos.Errorf("invalid configuration : [%v]", err)
		panic("invalid configuration : " + err.Error())
	}
	sos.Debugf("settings [%+v]", cfg)

	// throttling is retried by internal/retry with a fixed delay, not by the sdk
	sdkConfig, err := config.LoadDefaultConfig(context.Background(), config.WithRetryMaxAttempts(1))
	if err != nil {
		sos.Errorf("failed to load SDK config, %v", err)
		panic("failed to load sdk config")
	}
	sos.Infof("SDK config loaded for region [%s]", sdkConfig.Region)

	services := []awsclientmgr.AWSServiceName{awsclientmgr.ORGANIZATIONS, awsclientmgr.LAMBDA}
	if cfg.ReportBucket != "" {
		services = append(services, awsclientmgr.S3)
	}
	clients, err := awsclientmgr.Init(awsclientmgr.AWSClientMgrInitConfig{
		Cfg:                  sdkConfig,
		Services:             services,
		OrganizationsRoleArn: cfg.OrganizationsRoleArn,
		Logger:               sos,
	})
	if err != nil {
		sos.Errorf("failed to create aws clients : [%v]", err)
		panic("failed to create aws clients")
	}
	organizationsClient, err := clients.GetOrganizationsClient()
	if err != nil {
		panic(err.Error())
	}
	lambdaClient, err := clients.GetLambdaClient()
	if err != nil {
		panic(err.Error())
	}

	var reportWriter writer.Writer
	if cfg.ReportBucket != "" {
		s3Client, err := clients.GetS3Client()
		if err != nil {
			panic(err.Error())
		}
		reportWriter, err = writer.Init(writer.WriterInitConfig{S3Client: s3Client})
		if err != nil {
			panic(err.Error())
		}
	}

	lister := accountlister.Init(accountlister.AccountListerInitConfig{
		Client: organizationsClient,
		RetryPolicy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelay,
		},
		Logger: sos,
	})

	permissionsReconciler, err = reconciler.Init(reconciler.ReconcilerInitConfig{
		AccountLister:        lister,
		LambdaClient:         lambdaClient,
		Writer:               reportWriter,
		Settings:             cfg,
		ExcludeFunctionNames: []string{lambdacontext.FunctionName},
		Logger:               sos,
	})
	if err != nil {
		sos.Errorf("failed to create reconciler : [%v]", err)
		panic("failed to create reconciler")
	}

	responseSender, err = cfnresponse.Init(cfnresponse.SenderInitConfig{
		LogStreamName: lambdacontext.LogStreamName,
		Logger:        sos,
	})
	if err != nil {
		panic(err.Error())
	}
	sos.Infof("main init finished")
}

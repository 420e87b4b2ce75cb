package awsclientmgr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/outofoffice3/common/logger"
	"github.com/stretchr/testify/assert"
)

func TestAwsClientMgr(t *testing.T) {
	assertion := assert.New(t)
	cfg := aws.Config{Region: "us-east-1"}

	awscm, err := Init(AWSClientMgrInitConfig{
		Cfg:                  cfg,
		Services:             []AWSServiceName{ORGANIZATIONS, LAMBDA, S3},
		OrganizationsRoleArn: "arn:aws:iam::123456789012:role/org-reader",
		Logger:               logger.NewConsoleLogger(logger.LogLevelDebug),
	})
	assertion.NoError(err)
	assertion.NotNil(awscm)

	orgClient, ok := awscm.GetSDKClient(ORGANIZATIONS)
	assertion.True(ok)
	assertion.IsType(&organizations.Client{}, orgClient)
	lambdaClient, ok := awscm.GetSDKClient(LAMBDA)
	assertion.True(ok)
	assertion.IsType(&lambda.Client{}, lambdaClient)
	s3Client, ok := awscm.GetSDKClient(S3)
	assertion.True(ok)
	assertion.IsType(&s3.Client{}, s3Client)

	typedOrg, err := awscm.GetOrganizationsClient()
	assertion.NoError(err)
	assertion.NotNil(typedOrg)
	typedLambda, err := awscm.GetLambdaClient()
	assertion.NoError(err)
	assertion.NotNil(typedLambda)
	typedS3, err := awscm.GetS3Client()
	assertion.NoError(err)
	assertion.NotNil(typedS3)
}

func TestAwsClientMgrPartialServices(t *testing.T) {
	assertion := assert.New(t)
	awscm, err := Init(AWSClientMgrInitConfig{
		Cfg:      aws.Config{Region: "us-east-1"},
		Services: []AWSServiceName{S3},
	})
	assertion.NoError(err)

	_, err = awscm.GetLambdaClient()
	assertion.Error(err)
	_, err = awscm.GetOrganizationsClient()
	assertion.Error(err)
	_, ok := awscm.GetSDKClient(LAMBDA)
	assertion.False(ok)
}

func TestAwsClientMgrErrors(t *testing.T) {
	assertion := assert.New(t)

	_, err := Init(AWSClientMgrInitConfig{Cfg: aws.Config{}})
	assertion.Error(err)

	_, err = Init(AWSClientMgrInitConfig{
		Cfg:      aws.Config{},
		Services: []AWSServiceName{AWSServiceName("non-existent")},
	})
	assertion.Error(err)

	awscm := NewAWSClientMgr()
	err = awscm.SetSDKClient(S3, nil)
	assertion.Error(err)
	err = awscm.SetSDKClient(S3, &lambda.Client{})
	assertion.Error(err)
	err = awscm.SetSDKClient(AWSServiceName("non-existent"), &s3.Client{})
	assertion.Error(err)
	resultClient, ok := awscm.GetSDKClient(AWSServiceName("non-existent"))
	assertion.False(ok)
	assertion.Nil(resultClient)

	err = awscm.SetSDKClient(S3, &s3.Client{})
	assertion.NoError(err)
	_, ok = awscm.GetSDKClient(S3)
	assertion.True(ok)
}

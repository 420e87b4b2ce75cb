package awsclientmgr

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/outofoffice3/common/logger"
)

type AWSClientMgr interface {
	// set aws sdk client
	SetSDKClient(name AWSServiceName, client interface{}) error
	// get aws sdk client
	GetSDKClient(name AWSServiceName) (interface{}, bool)
	// typed getters
	GetOrganizationsClient() (*organizations.Client, error)
	GetLambdaClient() (*lambda.Client, error)
	GetS3Client() (*s3.Client, error)
}

type _AWSClientMgr struct {
	organizationsClient *organizations.Client
	lambdaClient        *lambda.Client
	s3Client            *s3.Client
}

type AWSClientMgrInitConfig struct {
	Cfg      aws.Config
	Services []AWSServiceName
	// when set, the organizations client assumes this role.  Used when the lambda
	// does not run in the management (or delegated admin) account.
	OrganizationsRoleArn string
	Logger               logger.Logger
}

// builds the sdk clients for the requested services.  Nothing is called over the network.
func Init(config AWSClientMgrInitConfig) (AWSClientMgr, error) {
	if len(config.Services) == 0 {
		return nil, errors.New("no aws services requested")
	}
	sos := config.Logger
	awsclient := NewAWSClientMgr()

	for _, service := range config.Services {
		sdkConfig := config.Cfg.Copy()
		var client interface{}
		switch service {
		case ORGANIZATIONS:
			{
				if config.OrganizationsRoleArn != "" {
					stsClient := sts.NewFromConfig(config.Cfg.Copy())
					creds := stscreds.NewAssumeRoleProvider(stsClient, config.OrganizationsRoleArn, func(o *stscreds.AssumeRoleOptions) {
						o.RoleSessionName = OrganizationsSessionName
					})
					sdkConfig.Credentials = aws.NewCredentialsCache(creds)
					if sos != nil {
						sos.Debugf("organizations client will assume role [%s]", config.OrganizationsRoleArn)
					}
				}
				client = organizations.NewFromConfig(sdkConfig)
			}
		case LAMBDA:
			{
				client = lambda.NewFromConfig(sdkConfig)
			}
		case S3:
			{
				client = s3.NewFromConfig(sdkConfig)
			}
		default:
			{
				return nil, errors.New("invalid service name [" + string(service) + "]")
			}
		}
		if err := awsclient.SetSDKClient(service, client); err != nil {
			return nil, err
		}
		if sos != nil {
			sos.Debugf("[%s] client loaded", service)
		}
	}
	return awsclient, nil
}

func NewAWSClientMgr() AWSClientMgr {
	return &_AWSClientMgr{}
}

// set aws sdk client
func (a *_AWSClientMgr) SetSDKClient(serviceName AWSServiceName, client interface{}) error {
	if client == nil {
		return errors.New("client is nil")
	}
	switch serviceName {
	case ORGANIZATIONS:
		{
			clientAssert, ok := client.(*organizations.Client)
			if !ok {
				return errors.New("client is not an organizations client")
			}
			a.organizationsClient = clientAssert
		}
	case LAMBDA:
		{
			clientAssert, ok := client.(*lambda.Client)
			if !ok {
				return errors.New("client is not a lambda client")
			}
			a.lambdaClient = clientAssert
		}
	case S3:
		{
			clientAssert, ok := client.(*s3.Client)
			if !ok {
				return errors.New("client is not an s3 client")
			}
			a.s3Client = clientAssert
		}
	default:
		{
			return errors.New("invalid service name")
		}
	}
	return nil
}

// get aws sdk client
func (a *_AWSClientMgr) GetSDKClient(serviceName AWSServiceName) (interface{}, bool) {
	switch serviceName {
	case ORGANIZATIONS:
		{
			return a.organizationsClient, a.organizationsClient != nil
		}
	case LAMBDA:
		{
			return a.lambdaClient, a.lambdaClient != nil
		}
	case S3:
		{
			return a.s3Client, a.s3Client != nil
		}
	}
	return nil, false
}

func (a *_AWSClientMgr) GetOrganizationsClient() (*organizations.Client, error) {
	if a.organizationsClient == nil {
		return nil, errors.New("organizations client not loaded")
	}
	return a.organizationsClient, nil
}

func (a *_AWSClientMgr) GetLambdaClient() (*lambda.Client, error) {
	if a.lambdaClient == nil {
		return nil, errors.New("lambda client not loaded")
	}
	return a.lambdaClient, nil
}

func (a *_AWSClientMgr) GetS3Client() (*s3.Client, error) {
	if a.s3Client == nil {
		return nil, errors.New("s3 client not loaded")
	}
	return a.s3Client, nil
}

package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/outofoffice3/org-guardrails/handle"
	"github.com/outofoffice3/org-guardrails/internal/shared"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

const (
	// folders holding the bootstrap executables built from cmd/permissions and cmd/notifier
	permissionsAssetDir = "../../bin/permissions"
	notifierAssetDir    = "../../bin/notifier"
)

type DeploymentStackProps struct {
	awscdk.StackProps
}

func GuardrailsStack(scope constructs.Construct, id string, props *DeploymentStackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}
	stack := awscdk.NewStack(scope, &id, &sprops)

	orgName := awscdk.NewCfnParameter(stack, jsii.String("OrganizationName"), &awscdk.CfnParameterProps{
		Type:        jsii.String("String"),
		Description: jsii.String("Organization name, used as the statement id prefix and the function name prefix"),
	})
	orgId := awscdk.NewCfnParameter(stack, jsii.String("OrganizationId"), &awscdk.CfnParameterProps{
		Type:           jsii.String("String"),
		Description:    jsii.String("AWS Organizations id"),
		AllowedPattern: jsii.String("^o-[a-z0-9]{10,32}$"),
	})
	complianceBucketName := awscdk.NewCfnParameter(stack, jsii.String("ComplianceBucketName"), &awscdk.CfnParameterProps{
		Type:        jsii.String("String"),
		Description: jsii.String("Bucket the compliance csv reports are delivered to"),
	})
	webhookURL := awscdk.NewCfnParameter(stack, jsii.String("SlackWebhookUrl"), &awscdk.CfnParameterProps{
		Type:        jsii.String("String"),
		Description: jsii.String("Slack incoming webhook for non compliant findings"),
		NoEcho:      jsii.Bool(true),
		Default:     jsii.String(""),
	})

	reportBucket := awss3.NewBucket(stack, jsii.String("PermissionsReportBucket"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
	})

	// permissions reconciler
	permissionsRole := awsiam.NewRole(stack, jsii.String("PermissionsRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
	})
	permissionsRole.AddManagedPolicy(awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaBasicExecutionRole")))
	permissionsRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("organizations:ListAccounts"),
		Resources: jsii.Strings("*"),
	}))
	permissionsRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect: awsiam.Effect_ALLOW,
		Actions: jsii.Strings(
			"lambda:GetPolicy",
			"lambda:AddPermission",
			"lambda:ListFunctions",
		),
		Resources: jsii.Strings("*"),
	}))

	permissionsFn := awslambda.NewFunction(stack, jsii.String("PermissionsFunction"), &awslambda.FunctionProps{
		Code:         awslambda.Code_FromAsset(jsii.String(permissionsAssetDir), nil),
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Handler:      jsii.String("bootstrap"),
		Architecture: awslambda.Architecture_ARM_64(),
		Role:         permissionsRole,
		Timeout:      awscdk.Duration_Minutes(jsii.Number(10)),
		Description:  jsii.String("Grants every organization account invoke access to the guardrail functions"),
		Environment: &map[string]*string{
			string(shared.EnvOrganizationName): orgName.ValueAsString(),
			string(shared.EnvOrganizationID):   orgId.ValueAsString(),
			string(shared.EnvReportBucket):     reportBucket.BucketName(),
			string(shared.EnvMaxRetries):       jsii.String("3"),
			string(shared.EnvRetryDelay):       jsii.String("2s"),
		},
	})
	reportBucket.GrantPut(permissionsFn, jsii.String("permissions/*"))

	awscdk.NewCustomResource(stack, jsii.String("OrganizationPermissions"), &awscdk.CustomResourceProps{
		ServiceToken: permissionsFn.FunctionArn(),
		ResourceType: jsii.String("Custom::OrganizationPermissions"),
		Properties: &map[string]interface{}{
			"OrganizationName": orgName.ValueAsString(),
			"OrganizationId":   orgId.ValueAsString(),
		},
	})

	// new accounts join between deployments, so the grant runs daily as well
	reconcileRule := awsevents.NewRule(stack, jsii.String("PermissionsSchedule"), &awsevents.RuleProps{
		Schedule: awsevents.Schedule_Cron(&awsevents.CronOptions{
			Minute: jsii.String("0"),
			Hour:   jsii.String("5"),
		}),
	})
	reconcileRule.AddTarget(awseventstargets.NewLambdaFunction(permissionsFn, &awseventstargets.LambdaFunctionProps{
		Event: awsevents.RuleTargetInput_FromObject(map[string]interface{}{
			"RequestType": string(handle.RequestCron),
		}),
	}))

	// csv notifier
	complianceBucket := awss3.Bucket_FromBucketName(stack, jsii.String("ComplianceBucket"), complianceBucketName.ValueAsString())

	notifierFn := awslambda.NewFunction(stack, jsii.String("NotifierFunction"), &awslambda.FunctionProps{
		Code:         awslambda.Code_FromAsset(jsii.String(notifierAssetDir), nil),
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Handler:      jsii.String("bootstrap"),
		Architecture: awslambda.Architecture_ARM_64(),
		Timeout:      awscdk.Duration_Minutes(jsii.Number(2)),
		Description:  jsii.String("Posts non compliant findings from the newest compliance report to Slack"),
		Environment: &map[string]*string{
			string(shared.EnvBucketName):      complianceBucket.BucketName(),
			string(shared.EnvSlackWebhookURL): webhookURL.ValueAsString(),
			string(shared.EnvMaxRetries):      jsii.String("3"),
			string(shared.EnvRetryDelay):      jsii.String("1s"),
			string(shared.EnvWebhookTimeout):  jsii.String("10s"),
		},
	})
	complianceBucket.GrantRead(notifierFn, nil)

	notifyRule := awsevents.NewRule(stack, jsii.String("NotifierSchedule"), &awsevents.RuleProps{
		Schedule: awsevents.Schedule_Cron(&awsevents.CronOptions{
			Minute: jsii.String("0"),
			Hour:   jsii.String("9"),
		}),
	})
	notifyRule.AddTarget(awseventstargets.NewLambdaFunction(notifierFn, nil))

	awscdk.NewCfnOutput(stack, jsii.String("PermissionsFunctionName"), &awscdk.CfnOutputProps{
		Value: permissionsFn.FunctionName(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("PermissionsReportBucketName"), &awscdk.CfnOutputProps{
		Value: reportBucket.BucketName(),
	})

	return stack
}

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	GuardrailsStack(app, "org-guardrails", &DeploymentStackProps{
		awscdk.StackProps{
			Env: env(),
		},
	})

	app.Synth(nil)
}

// deploys to the account and region of the cli profile in use
func env() *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String(os.Getenv("CDK_DEFAULT_ACCOUNT")),
		Region:  jsii.String(os.Getenv("CDK_DEFAULT_REGION")),
	}
}

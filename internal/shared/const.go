package shared

const (
	// permissions lambda
	EnvOrganizationName      EnvVar = "OrganizationName"
	EnvOrganizationID        EnvVar = "ORG_ID"
	EnvTargetFunctionNames   EnvVar = "TARGET_FUNCTION_NAMES"
	EnvPermissionPrincipal   EnvVar = "PERMISSION_PRINCIPAL"
	EnvPermissionAction      EnvVar = "PERMISSION_ACTION"
	EnvSkipSuspendedAccounts EnvVar = "SKIP_SUSPENDED_ACCOUNTS"
	EnvOrganizationsRoleArn  EnvVar = "ORGANIZATIONS_ROLE_ARN"
	EnvReportBucket          EnvVar = "REPORT_BUCKET"

	// notifier lambda
	EnvBucketName      EnvVar = "S3_BUCKET"
	EnvSlackWebhookURL EnvVar = "SLACK_WEBHOOK_URL"
	EnvWebhookTimeout  EnvVar = "WEBHOOK_TIMEOUT"

	// shared by both lambdas
	EnvMaxRetries EnvVar = "MAX_RETRIES"
	EnvRetryDelay EnvVar = "RETRY_DELAY"

	// dashboard
	EnvDashboardAddr            EnvVar = "DASHBOARD_ADDR"
	EnvDashboardMaxUploadBytes  EnvVar = "DASHBOARD_MAX_UPLOAD_BYTES"
	EnvDashboardMaxDatasets     EnvVar = "DASHBOARD_MAX_DATASETS"
	EnvDashboardShutdownTimeout EnvVar = "DASHBOARD_SHUTDOWN_TIMEOUT"

	DefaultPrincipal        string = "config.amazonaws.com"
	DefaultPermissionAction string = "lambda:InvokeFunction"
	PermissionReportPrefix  string = "permissions"
	CSVExtension            string = ".csv"
	MaxStatementIdLength    int    = 100
	MaxNonCompliantInResult int    = 100
)

// pseudo resource type aws uses for account level controls
const OrganizationAccountType ResourceType = "AWS::::Account"

// csv column names shared by the reconciliation report, the notifier and the dashboard
const (
	ColumnAccountId    string = "accountId"
	ColumnGuardrail    string = "guardrail"
	ColumnControlName  string = "controlName"
	ColumnResourceType string = "resourceType"
	ColumnResourceArn  string = "resourceArn"
	ColumnCompliance   string = "compliance"
)

package settings

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadPermissions(t *testing.T) {
	assertion := assert.New(t)
	t.Setenv("OrganizationName", "testorg-")
	t.Setenv("ORG_ID", "o-1234567890")
	t.Setenv("TARGET_FUNCTION_NAMES", "testorg-rule-a, testorg-rule-b,,")
	t.Setenv("RETRY_DELAY", "500ms")

	cfg, err := LoadPermissions(viper.New())
	assertion.NoError(err)
	assertion.Equal("testorg-", cfg.OrganizationName)
	assertion.Equal("o-1234567890", cfg.OrganizationId)
	assertion.Equal([]string{"testorg-rule-a", "testorg-rule-b"}, cfg.TargetFunctionNames)
	assertion.Equal("config.amazonaws.com", cfg.Principal)
	assertion.Equal("lambda:InvokeFunction", cfg.Action)
	assertion.True(cfg.SkipSuspendedAccounts)
	assertion.Equal(3, cfg.MaxRetries)
	assertion.Equal(500*time.Millisecond, cfg.RetryDelay)
	assertion.Empty(cfg.ReportBucket)
}

func TestLoadPermissionsOverrides(t *testing.T) {
	assertion := assert.New(t)
	t.Setenv("OrganizationName", "testorg-")
	t.Setenv("ORG_ID", "o-1234567890")
	t.Setenv("SKIP_SUSPENDED_ACCOUNTS", "false")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("REPORT_BUCKET", "reports")
	t.Setenv("PERMISSION_PRINCIPAL", "*")

	cfg, err := LoadPermissions(nil)
	assertion.NoError(err)
	assertion.False(cfg.SkipSuspendedAccounts)
	assertion.Equal(5, cfg.MaxRetries)
	assertion.Equal("reports", cfg.ReportBucket)
	assertion.Equal("*", cfg.Principal)
	assertion.Empty(cfg.TargetFunctionNames)
}

func TestLoadPermissionsMissingRequired(t *testing.T) {
	assertion := assert.New(t)
	t.Setenv("OrganizationName", "")
	t.Setenv("ORG_ID", "")

	_, err := LoadPermissions(viper.New())
	assertion.Error(err)
	assertion.Contains(err.Error(), "OrganizationName")
	assertion.Contains(err.Error(), "ORG_ID")

	t.Setenv("OrganizationName", "testorg-")
	t.Setenv("ORG_ID", "not-an-org")
	_, err = LoadPermissions(viper.New())
	assertion.Error(err)
	assertion.Contains(err.Error(), "invalid organization id")

	t.Setenv("ORG_ID", "o-1234567890")
	t.Setenv("MAX_RETRIES", "1")
	_, err = LoadPermissions(viper.New())
	assertion.Error(err)
	assertion.Contains(err.Error(), "MAX_RETRIES")
}

func TestLoadNotifier(t *testing.T) {
	assertion := assert.New(t)
	t.Setenv("S3_BUCKET", "compliance-reports")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T000/B000/XXXX")

	cfg, err := LoadNotifier(viper.New())
	assertion.NoError(err)
	assertion.Equal("compliance-reports", cfg.Bucket)
	assertion.Equal("https://hooks.slack.com/services/T000/B000/XXXX", cfg.WebhookURL)
	assertion.Equal(10*time.Second, cfg.WebhookTimeout)
	assertion.Equal(3, cfg.MaxRetries)
	assertion.Equal(time.Second, cfg.RetryDelay)
}

func TestLoadNotifierValidation(t *testing.T) {
	assertion := assert.New(t)
	t.Setenv("S3_BUCKET", "")
	_, err := LoadNotifier(viper.New())
	assertion.Error(err)
	assertion.Contains(err.Error(), "S3_BUCKET")

	// webhook is optional but must be a url when present
	t.Setenv("S3_BUCKET", "compliance-reports")
	t.Setenv("SLACK_WEBHOOK_URL", "not a url")
	_, err = LoadNotifier(viper.New())
	assertion.Error(err)

	t.Setenv("SLACK_WEBHOOK_URL", "")
	cfg, err := LoadNotifier(viper.New())
	assertion.NoError(err)
	assertion.Empty(cfg.WebhookURL)
}

func TestLoadDashboard(t *testing.T) {
	assertion := assert.New(t)
	v := viper.New()
	v.Set("addr", "127.0.0.1:9000")
	t.Setenv("DASHBOARD_MAX_DATASETS", "5")

	cfg, err := LoadDashboard(v)
	assertion.NoError(err)
	assertion.Equal("127.0.0.1:9000", cfg.Addr)
	assertion.Equal(5, cfg.MaxDatasets)
	assertion.Equal(int64(32<<20), cfg.MaxUploadBytes)
	assertion.Equal(10*time.Second, cfg.ShutdownTimeout)

	t.Setenv("DASHBOARD_MAX_DATASETS", "0")
	_, err = LoadDashboard(viper.New())
	assertion.Error(err)
}

func TestSplitList(t *testing.T) {
	assertion := assert.New(t)
	assertion.Equal([]string{"a", "b", "c"}, splitList([]string{"a, b", " c "}))
	assertion.Nil(splitList(nil))
}

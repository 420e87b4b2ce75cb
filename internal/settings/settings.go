package settings

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/outofoffice3/org-guardrails/internal/shared"
	"github.com/spf13/viper"
)

// Permissions configures the permission reconciler lambda.
type Permissions struct {
	OrganizationName      string        `mapstructure:"organization_name"`
	OrganizationId        string        `mapstructure:"organization_id"`
	TargetFunctionNames   []string      `mapstructure:"target_function_names"`
	Principal             string        `mapstructure:"principal"`
	Action                string        `mapstructure:"action"`
	SkipSuspendedAccounts bool          `mapstructure:"skip_suspended_accounts"`
	OrganizationsRoleArn  string        `mapstructure:"organizations_role_arn"`
	ReportBucket          string        `mapstructure:"report_bucket"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
}

// Notifier configures the csv to slack lambda.
type Notifier struct {
	Bucket         string        `mapstructure:"bucket"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// Dashboard configures the dashboard web server.
type Dashboard struct {
	Addr            string        `mapstructure:"addr"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	MaxDatasets     int           `mapstructure:"max_datasets"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// binds config keys to their environment variables
func bind(v *viper.Viper, bindings map[string]shared.EnvVar) error {
	for key, env := range bindings {
		if err := v.BindEnv(key, string(env)); err != nil {
			return fmt.Errorf("failed to bind env var %s: %w", env, err)
		}
	}
	return nil
}

// LoadPermissions reads the reconciler settings from the environment.
func LoadPermissions(v *viper.Viper) (Permissions, error) {
	if v == nil {
		v = viper.New()
	}
	err := bind(v, map[string]shared.EnvVar{
		"organization_name":       shared.EnvOrganizationName,
		"organization_id":         shared.EnvOrganizationID,
		"target_function_names":   shared.EnvTargetFunctionNames,
		"principal":               shared.EnvPermissionPrincipal,
		"action":                  shared.EnvPermissionAction,
		"skip_suspended_accounts": shared.EnvSkipSuspendedAccounts,
		"organizations_role_arn":  shared.EnvOrganizationsRoleArn,
		"report_bucket":           shared.EnvReportBucket,
		"max_retries":             shared.EnvMaxRetries,
		"retry_delay":             shared.EnvRetryDelay,
	})
	if err != nil {
		return Permissions{}, err
	}
	v.SetDefault("principal", shared.DefaultPrincipal)
	v.SetDefault("action", shared.DefaultPermissionAction)
	v.SetDefault("skip_suspended_accounts", true)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", 2*time.Second)

	var cfg Permissions
	if err := v.Unmarshal(&cfg); err != nil {
		return Permissions{}, fmt.Errorf("failed to parse permissions settings: %w", err)
	}
	cfg.TargetFunctionNames = splitList(cfg.TargetFunctionNames)
	if err := cfg.Validate(); err != nil {
		return Permissions{}, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (p Permissions) Validate() error {
	var errs []error
	if strings.TrimSpace(p.OrganizationName) == "" {
		errs = append(errs, missing(shared.EnvOrganizationName))
	}
	if p.OrganizationId == "" {
		errs = append(errs, missing(shared.EnvOrganizationID))
	} else if !shared.IsValidOrganizationId(p.OrganizationId) {
		errs = append(errs, fmt.Errorf("invalid organization id [%s] in %s", p.OrganizationId, shared.EnvOrganizationID))
	}
	if p.Principal == "" {
		errs = append(errs, missing(shared.EnvPermissionPrincipal))
	}
	if p.Action == "" {
		errs = append(errs, missing(shared.EnvPermissionAction))
	}
	// a throttled add permission call is always retried at least once
	if p.MaxRetries < 2 {
		errs = append(errs, fmt.Errorf("%s must be at least 2", shared.EnvMaxRetries))
	}
	if p.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", shared.EnvRetryDelay))
	}
	return errors.Join(errs...)
}

// LoadNotifier reads the notifier settings from the environment.
func LoadNotifier(v *viper.Viper) (Notifier, error) {
	if v == nil {
		v = viper.New()
	}
	err := bind(v, map[string]shared.EnvVar{
		"bucket":          shared.EnvBucketName,
		"webhook_url":     shared.EnvSlackWebhookURL,
		"webhook_timeout": shared.EnvWebhookTimeout,
		"max_retries":     shared.EnvMaxRetries,
		"retry_delay":     shared.EnvRetryDelay,
	})
	if err != nil {
		return Notifier{}, err
	}
	v.SetDefault("webhook_timeout", 10*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", time.Second)

	var cfg Notifier
	if err := v.Unmarshal(&cfg); err != nil {
		return Notifier{}, fmt.Errorf("failed to parse notifier settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Notifier{}, err
	}
	return cfg, nil
}

// Validate checks required fields.  The webhook is optional.
func (n Notifier) Validate() error {
	var errs []error
	if strings.TrimSpace(n.Bucket) == "" {
		errs = append(errs, missing(shared.EnvBucketName))
	}
	if n.WebhookURL != "" {
		u, err := url.Parse(n.WebhookURL)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			errs = append(errs, fmt.Errorf("invalid %s", shared.EnvSlackWebhookURL))
		}
	}
	if n.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", shared.EnvWebhookTimeout))
	}
	if n.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", shared.EnvMaxRetries))
	}
	if n.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", shared.EnvRetryDelay))
	}
	return errors.Join(errs...)
}

// LoadDashboard reads the dashboard settings.  Flags bound to v by the caller take
// precedence over the environment.
func LoadDashboard(v *viper.Viper) (Dashboard, error) {
	if v == nil {
		v = viper.New()
	}
	err := bind(v, map[string]shared.EnvVar{
		"addr":             shared.EnvDashboardAddr,
		"max_upload_bytes": shared.EnvDashboardMaxUploadBytes,
		"max_datasets":     shared.EnvDashboardMaxDatasets,
		"shutdown_timeout": shared.EnvDashboardShutdownTimeout,
	})
	if err != nil {
		return Dashboard{}, err
	}
	v.SetDefault("addr", ":8501")
	v.SetDefault("max_upload_bytes", 32<<20)
	v.SetDefault("max_datasets", 20)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	var cfg Dashboard
	if err := v.Unmarshal(&cfg); err != nil {
		return Dashboard{}, fmt.Errorf("failed to parse dashboard settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Dashboard{}, err
	}
	return cfg, nil
}

// Validate checks the dashboard limits.
func (d Dashboard) Validate() error {
	var errs []error
	if d.Addr == "" {
		errs = append(errs, missing(shared.EnvDashboardAddr))
	}
	if d.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", shared.EnvDashboardMaxUploadBytes))
	}
	if d.MaxDatasets <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", shared.EnvDashboardMaxDatasets))
	}
	return errors.Join(errs...)
}

func missing(env shared.EnvVar) error {
	return fmt.Errorf("required environment variable %s is missing or empty", env)
}

// env values arrive as a single comma separated string
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

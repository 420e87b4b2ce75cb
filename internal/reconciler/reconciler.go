package reconciler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/accountlister"
	"github.com/outofoffice3/org-guardrails/internal/errormgr"
	"github.com/outofoffice3/org-guardrails/internal/metricmgr"
	"github.com/outofoffice3/org-guardrails/internal/policydoc"
	"github.com/outofoffice3/org-guardrails/internal/retry"
	"github.com/outofoffice3/org-guardrails/internal/settings"
	"github.com/outofoffice3/org-guardrails/internal/shared"
	"github.com/outofoffice3/org-guardrails/internal/writer"
)

const (
	resourceNotFoundCode = "ResourceNotFoundException"
	resourceConflictCode = "ResourceConflictException"
)

type Reconciler interface {
	// grant every organization account invoke rights on the target functions
	Reconcile(ctx context.Context) Result
}

type _Reconciler struct {
	accountLister accountlister.AccountLister
	lambdaClient  LambdaAPI
	writer        writer.Writer
	settings      settings.Permissions
	excluded      map[string]struct{}
	sleep         retry.SleepFunc
	now           func() time.Time
	logger        logger.Logger
}

type ReconcilerInitConfig struct {
	AccountLister accountlister.AccountLister
	LambdaClient  LambdaAPI
	// optional, required when Settings.ReportBucket is set
	Writer   writer.Writer
	Settings settings.Permissions
	// functions never targeted by discovery, usually the reconciler itself
	ExcludeFunctionNames []string
	Sleep                retry.SleepFunc
	Now                  func() time.Time
	Logger               logger.Logger
}

func Init(config ReconcilerInitConfig) (Reconciler, error) {
	// return errors
	if config.AccountLister == nil {
		return nil, errors.New("account lister is not set")
	}
	if config.LambdaClient == nil {
		return nil, errors.New("lambda client is not set")
	}
	if config.Logger == nil {
		return nil, errors.New("logger is not set")
	}
	if err := config.Settings.Validate(); err != nil {
		return nil, err
	}
	if config.Settings.ReportBucket != "" && config.Writer == nil {
		return nil, errors.New("report bucket is set but no writer was provided")
	}

	excluded := make(map[string]struct{}, len(config.ExcludeFunctionNames))
	for _, name := range config.ExcludeFunctionNames {
		if name != "" {
			excluded[name] = struct{}{}
		}
	}
	sleep := config.Sleep
	if sleep == nil {
		sleep = retry.ContextSleep
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &_Reconciler{
		accountLister: config.AccountLister,
		lambdaClient:  config.LambdaClient,
		writer:        config.Writer,
		settings:      config.Settings,
		excluded:      excluded,
		sleep:         sleep,
		now:           now,
		logger:        config.Logger,
	}, nil
}

// per invocation state, nothing is carried between runs
type run struct {
	metricMgr metricmgr.MetricMgr
	errorMgr  errormgr.ErrorMgr
}

func (r *_Reconciler) Reconcile(ctx context.Context) Result {
	state := run{
		metricMgr: metricmgr.Init(),
		errorMgr:  errormgr.New(),
	}
	result := Result{
		Functions: []string{},
		Accounts:  []AccountResult{},
	}

	accounts := r.accountLister.ListAccounts(ctx)
	state.metricMgr.IncrementMetric(metricmgr.TotalAccounts, int32(len(accounts)))

	eligible := make([]shared.Account, 0, len(accounts))
	for _, account := range accounts {
		if r.settings.SkipSuspendedAccounts && !account.IsActive() {
			state.metricMgr.IncrementMetric(metricmgr.TotalSkipped, 1)
			r.logger.Debugf("skipping account [%s] with status [%s]", account.Id, account.Status)
			result.Accounts = append(result.Accounts, AccountResult{
				AccountId:   account.Id,
				AccountName: account.Name,
				Status:      SKIPPED,
				Message:     "account status is " + string(account.Status),
			})
			continue
		}
		eligible = append(eligible, account)
	}
	if len(eligible) == 0 {
		r.logger.Infof("no accounts to process")
		return r.finish(ctx, result, OutcomeNoAccounts, state)
	}

	functions, err := r.targetFunctions(ctx, state)
	if err != nil {
		state.errorMgr.StoreError(errormgr.Error{
			Code:    retry.ErrorCode(err),
			Message: "failed to discover target functions : " + err.Error(),
		})
		return r.finish(ctx, result, OutcomeFailed, state)
	}
	state.metricMgr.IncrementMetric(metricmgr.TotalFunctions, int32(len(functions)))
	result.Functions = functions
	if len(functions) == 0 {
		r.logger.Infof("no target functions found with prefix [%s]", r.settings.OrganizationName)
		return r.finish(ctx, result, OutcomeNoAccounts, state)
	}

	for _, functionName := range functions {
		result.Accounts = append(result.Accounts, r.reconcileFunction(ctx, functionName, eligible, state)...)
	}

	outcome := OutcomeSuccess
	if len(state.errorMgr.GetErrors()) > 0 {
		outcome = OutcomeFailed
	}
	return r.finish(ctx, result, outcome, state)
}

// targetFunctions returns the configured function names, or discovers every function
// whose name starts with the organization prefix.
func (r *_Reconciler) targetFunctions(ctx context.Context, state run) ([]string, error) {
	if len(r.settings.TargetFunctionNames) > 0 {
		return r.settings.TargetFunctionNames, nil
	}

	functions := []string{}
	paginator := lambda.NewListFunctionsPaginator(r.lambdaClient, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		// a failed page does not advance the paginator, so the retry asks for the same page
		output, _, err := retry.Do(ctx, r.retryPolicy("list functions", state.metricMgr), func(ctx context.Context) (*lambda.ListFunctionsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, err
		}
		for _, function := range output.Functions {
			name := aws.ToString(function.FunctionName)
			if !strings.HasPrefix(name, r.settings.OrganizationName) {
				continue
			}
			if _, ok := r.excluded[name]; ok {
				continue
			}
			functions = append(functions, name)
		}
	}
	r.logger.Infof("discovered [%d] target functions : [%v]", len(functions), functions)
	return functions, nil
}

func (r *_Reconciler) reconcileFunction(ctx context.Context, functionName string, accounts []shared.Account, state run) []AccountResult {
	policy := r.fetchPolicy(ctx, functionName, state)

	accountIds := make([]string, 0, len(accounts))
	for _, account := range accounts {
		accountIds = append(accountIds, account.Id)
	}
	pending := make(map[string]struct{}, len(accountIds))
	for _, accountId := range policydoc.AccountsNeedingStatements(policy, r.settings.OrganizationName, accountIds, r.matchMode()) {
		pending[accountId] = struct{}{}
	}

	results := make([]AccountResult, 0, len(accounts))
	for _, account := range accounts {
		state.metricMgr.IncrementMetric(metricmgr.TotalCoverageChecks, 1)
		accountResult := AccountResult{
			AccountId:    account.Id,
			AccountName:  account.Name,
			FunctionName: functionName,
			StatementId:  shared.StatementId(r.settings.OrganizationName, account.Id),
		}
		if _, ok := pending[account.Id]; !ok {
			state.metricMgr.IncrementMetric(metricmgr.TotalAlreadyGranted, 1)
			accountResult.Status = ALREADY_GRANTED
			results = append(results, accountResult)
			continue
		}
		accountResult = r.grant(ctx, accountResult, state)
		// a repeated account is only attempted again when the earlier attempt failed
		if accountResult.Status != FAILED {
			delete(pending, account.Id)
		}
		results = append(results, accountResult)
	}
	return results
}

// matchMode decides whether an AWS principal statement naming the account counts as a grant.
// Service principal grants are only recognised by statement id or source account.
func (r *_Reconciler) matchMode() policydoc.MatchMode {
	if shared.IsServicePrincipal(r.settings.Principal) {
		return policydoc.MatchSourceAccount
	}
	return policydoc.MatchAccountPrincipal
}

// fetchPolicy reads the function policy.  A function without a policy, or a policy that cannot
// be read, is treated as having no statements; add permission rejects duplicates anyway.
func (r *_Reconciler) fetchPolicy(ctx context.Context, functionName string, state run) policydoc.Policy {
	output, _, err := retry.Do(ctx, r.retryPolicy("get policy ["+functionName+"]", state.metricMgr), func(ctx context.Context) (*lambda.GetPolicyOutput, error) {
		return r.lambdaClient.GetPolicy(ctx, &lambda.GetPolicyInput{FunctionName: aws.String(functionName)})
	})
	if err != nil {
		if retry.HasCode(err, resourceNotFoundCode) {
			r.logger.Debugf("function [%s] has no resource policy yet", functionName)
		} else {
			r.logger.Errorf("failed to get policy for function [%s], treating it as empty : [%v]", functionName, err)
		}
		return policydoc.Policy{}
	}
	if output == nil {
		return policydoc.Policy{}
	}
	policy, err := policydoc.Parse(aws.ToString(output.Policy))
	if err != nil {
		r.logger.Errorf("function [%s] : [%v], treating it as empty", functionName, err)
		return policydoc.Policy{}
	}
	r.logger.Debugf("function [%s] policy has [%d] statements", functionName, len(policy.Statement))
	return policy
}

// permissionInput scopes the statement to the account.  Service principals are scoped by
// source account, anything else makes the account itself the principal, restricted to the organization.
func (r *_Reconciler) permissionInput(accountResult AccountResult) *lambda.AddPermissionInput {
	input := &lambda.AddPermissionInput{
		FunctionName: aws.String(accountResult.FunctionName),
		StatementId:  aws.String(accountResult.StatementId),
		Action:       aws.String(r.settings.Action),
	}
	if shared.IsServicePrincipal(r.settings.Principal) {
		input.Principal = aws.String(r.settings.Principal)
		input.SourceAccount = aws.String(accountResult.AccountId)
		return input
	}
	input.Principal = aws.String(accountResult.AccountId)
	input.PrincipalOrgID = aws.String(r.settings.OrganizationId)
	return input
}

func (r *_Reconciler) grant(ctx context.Context, accountResult AccountResult, state run) AccountResult {
	input := r.permissionInput(accountResult)
	label := "add permission [" + accountResult.FunctionName + "] [" + accountResult.AccountId + "]"
	output, attempts, err := retry.Do(ctx, r.retryPolicy(label, state.metricMgr), func(ctx context.Context) (*lambda.AddPermissionOutput, error) {
		state.metricMgr.IncrementMetric(metricmgr.TotalAddCalls, 1)
		return r.lambdaClient.AddPermission(ctx, input)
	})
	accountResult.Attempts = attempts

	switch {
	case err != nil && retry.HasCode(err, resourceConflictCode):
		{
			state.metricMgr.IncrementMetric(metricmgr.TotalAlreadyGranted, 1)
			accountResult.Status = ALREADY_GRANTED
			accountResult.Message = "statement id already exists"
			r.logger.Debugf("%s : statement [%s] already exists", label, accountResult.StatementId)
		}
	case err != nil:
		{
			r.fail(&accountResult, retry.ErrorCode(err), err.Error(), state)
		}
	case output == nil || aws.ToString(output.Statement) == "":
		{
			r.fail(&accountResult, "", "add permission response is missing the Statement field", state)
		}
	default:
		{
			state.metricMgr.IncrementMetric(metricmgr.TotalGranted, 1)
			accountResult.Status = GRANTED
			r.logger.Infof("%s : granted with statement [%s] after [%d] attempts", label, accountResult.StatementId, attempts)
		}
	}
	return accountResult
}

func (r *_Reconciler) fail(accountResult *AccountResult, code, message string, state run) {
	state.metricMgr.IncrementMetric(metricmgr.TotalFailedPermissions, 1)
	accountResult.Status = FAILED
	accountResult.Message = message
	state.errorMgr.StoreError(errormgr.Error{
		AccountId:    accountResult.AccountId,
		FunctionName: accountResult.FunctionName,
		StatementId:  accountResult.StatementId,
		Code:         code,
		Message:      message,
	})
}

// retryPolicy retries throttling only.
func (r *_Reconciler) retryPolicy(label string, metricMgr metricmgr.MetricMgr) retry.Policy {
	return retry.Policy{
		MaxAttempts: r.settings.MaxRetries,
		Delay:       r.settings.RetryDelay,
		Retryable:   retry.IsThrottle,
		Sleep:       r.sleep,
		OnRetry: func(attempt int, err error) {
			metricMgr.IncrementMetric(metricmgr.TotalThrottles, 1)
			r.logger.Infof("%s throttled on attempt [%d], retrying in [%v] : [%v]", label, attempt, r.settings.RetryDelay, err)
		},
	}
}

func (r *_Reconciler) finish(ctx context.Context, result Result, outcome Outcome, state run) Result {
	result.Outcome = outcome
	result.Metrics = state.metricMgr.Snapshot()
	result.FailedAccounts = state.errorMgr.GetFailedAccountIds()

	for _, err := range state.errorMgr.GetErrors() {
		r.logger.Errorf("%v", err)
	}
	r.logger.Infof("reconciliation finished with outcome [%d] [%s], metrics : [%v]", int(outcome), outcome, result.Metrics)

	if r.writer != nil && r.settings.ReportBucket != "" && len(result.Accounts) > 0 {
		key, err := r.exportReport(ctx, result)
		if err != nil {
			r.logger.Errorf("failed to export reconciliation report : [%v]", err)
		} else {
			result.ReportKey = key
		}
	}
	return result
}

// exportReport writes one csv row per account result to the report bucket.
func (r *_Reconciler) exportReport(ctx context.Context, result Result) (string, error) {
	records := make([][]string, 0, len(result.Accounts))
	for _, account := range result.Accounts {
		records = append(records, []string{
			account.AccountId,
			account.AccountName,
			account.FunctionName,
			account.StatementId,
			string(account.Status),
			strconv.Itoa(account.Attempts),
			account.Message,
		})
	}
	data, err := r.writer.WriteCSV(reportHeader, records)
	if err != nil {
		return "", err
	}
	key := r.now().UTC().Format(time.RFC3339) + shared.CSVExtension
	fullKey, err := r.writer.ExportToS3(ctx, r.settings.ReportBucket, key, shared.PermissionReportPrefix, data)
	if err != nil {
		return "", err
	}
	r.logger.Infof("reconciliation report written to [s3://%s/%s]", r.settings.ReportBucket, fullKey)
	return fullKey, nil
}

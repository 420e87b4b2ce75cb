package reconciler

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// Outcome is the three way result of a reconciliation run.
type Outcome int

const (
	OutcomeFailed     Outcome = -1
	OutcomeNoAccounts Outcome = 0
	OutcomeSuccess    Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		{
			return "SUCCESS"
		}
	case OutcomeNoAccounts:
		{
			return "NO_ACCOUNTS"
		}
	case OutcomeFailed:
		{
			return "FAILED"
		}
	}
	return "UNKNOWN"
}

type PermissionStatus string

const (
	ALREADY_GRANTED PermissionStatus = "ALREADY_GRANTED"
	GRANTED         PermissionStatus = "GRANTED"
	FAILED          PermissionStatus = "FAILED"
	SKIPPED         PermissionStatus = "SKIPPED"
)

// AccountResult is what happened to one account on one function.
type AccountResult struct {
	AccountId    string           `json:"accountId"`
	AccountName  string           `json:"accountName,omitempty"`
	FunctionName string           `json:"functionName,omitempty"`
	StatementId  string           `json:"statementId,omitempty"`
	Status       PermissionStatus `json:"status"`
	Attempts     int              `json:"attempts"`
	Message      string           `json:"message,omitempty"`
}

// Result carries the scalar outcome plus the per account detail behind it.
type Result struct {
	Outcome   Outcome         `json:"outcome"`
	Functions []string        `json:"functions"`
	Accounts  []AccountResult `json:"accounts"`
	// account ids with a permanent failure, in the order they failed
	FailedAccounts []string         `json:"failedAccounts"`
	Metrics        map[string]int32 `json:"metrics,omitempty"`
	ReportKey      string           `json:"reportKey,omitempty"`
}

// LambdaAPI is the slice of the lambda client the reconciler needs.  It also
// satisfies lambda.ListFunctionsAPIClient.
type LambdaAPI interface {
	GetPolicy(ctx context.Context, params *lambda.GetPolicyInput, optFns ...func(*lambda.Options)) (*lambda.GetPolicyOutput, error)
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
}

// report columns
var reportHeader = []string{"accountId", "accountName", "functionName", "statementId", "status", "attempts", "message"}

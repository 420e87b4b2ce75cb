package handle

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/reconciler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) Reconcile(ctx context.Context) reconciler.Result {
	args := m.Called(ctx)
	return args.Get(0).(reconciler.Result)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, event cfn.Event, status cfn.StatusType, data map[string]interface{}, reason string) {
	m.Called(ctx, event, status, data, reason)
}

func sampleEvent(requestType cfn.RequestType) cfn.Event {
	return cfn.Event{
		RequestType:        requestType,
		ResponseURL:        "https://example.com/response",
		StackID:            "arn:aws:cloudformation:us-east-1:123456789012:stack/test/123",
		RequestID:          "unique-id",
		LogicalResourceID:  "TestResource",
		PhysicalResourceID: "test-resource-id",
	}
}

func TestHandleCreateAndUpdate(t *testing.T) {
	assertion := assert.New(t)
	sos := logger.NewConsoleLogger(logger.LogLevelDebug)

	tests := []struct {
		requestType cfn.RequestType
		outcome     reconciler.Outcome
		status      cfn.StatusType
	}{
		{cfn.RequestCreate, reconciler.OutcomeSuccess, cfn.StatusSuccess},
		{cfn.RequestCreate, reconciler.OutcomeFailed, cfn.StatusFailed},
		{cfn.RequestCreate, reconciler.OutcomeNoAccounts, cfn.StatusSuccess},
		{cfn.RequestUpdate, reconciler.OutcomeSuccess, cfn.StatusSuccess},
		{cfn.RequestUpdate, reconciler.OutcomeFailed, cfn.StatusFailed},
	}
	for _, test := range tests {
		r := new(mockReconciler)
		sender := new(mockSender)
		event := sampleEvent(test.requestType)
		r.On("Reconcile", mock.Anything).Return(reconciler.Result{Outcome: test.outcome}).Once()
		sender.On("Send", mock.Anything, event, test.status, mock.Anything, "").Return().Once()

		response := HandlePermissionsEvent(context.Background(), event, r, sender, sos)
		assertion.Equal(test.status, response.Status)
		assertion.NotNil(response.Result)
		r.AssertExpectations(t)
		sender.AssertExpectations(t)
		sender.AssertNumberOfCalls(t, "Send", 1)
	}
}

func TestHandleDelete(t *testing.T) {
	assertion := assert.New(t)
	r := new(mockReconciler)
	sender := new(mockSender)
	event := sampleEvent(cfn.RequestDelete)
	sender.On("Send", mock.Anything, event, cfn.StatusSuccess, mock.Anything, "").Return().Once()

	response := HandlePermissionsEvent(context.Background(), event, r, sender, logger.NewConsoleLogger(logger.LogLevelDebug))
	assertion.Equal(cfn.StatusSuccess, response.Status)
	assertion.Nil(response.Result)
	r.AssertNotCalled(t, "Reconcile", mock.Anything)
	sender.AssertExpectations(t)
}

func TestHandleCron(t *testing.T) {
	assertion := assert.New(t)
	r := new(mockReconciler)
	sender := new(mockSender)
	r.On("Reconcile", mock.Anything).Return(reconciler.Result{Outcome: reconciler.OutcomeSuccess}).Once()

	event := sampleEvent(RequestCron)
	event.ResponseURL = ""
	response := HandlePermissionsEvent(context.Background(), event, r, sender, logger.NewConsoleLogger(logger.LogLevelDebug))
	assertion.Equal(cfn.StatusSuccess, response.Status)
	assertion.Equal(reconciler.OutcomeSuccess, response.Result.Outcome)
	r.AssertExpectations(t)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUnknownRequestType(t *testing.T) {
	assertion := assert.New(t)
	r := new(mockReconciler)
	sender := new(mockSender)
	event := sampleEvent(cfn.RequestType("Unknown"))
	sender.On("Send", mock.Anything, event, cfn.StatusFailed, mock.Anything, "Unsupported request type [Unknown]").Return().Once()

	response := HandlePermissionsEvent(context.Background(), event, r, sender, logger.NewConsoleLogger(logger.LogLevelDebug))
	assertion.Equal(cfn.StatusFailed, response.Status)
	r.AssertNotCalled(t, "Reconcile", mock.Anything)
	sender.AssertExpectations(t)
}

func TestResponseData(t *testing.T) {
	assertion := assert.New(t)
	data := ResponseData(reconciler.Result{
		Outcome:   reconciler.OutcomeFailed,
		Functions: []string{"testorg-a", "testorg-b"},
		Accounts: []reconciler.AccountResult{
			{AccountId: "123456789012", Status: reconciler.GRANTED},
			{AccountId: "123456789013", Status: reconciler.FAILED},
		},
		FailedAccounts: []string{"123456789013"},
		Metrics:        map[string]int32{"totalAccounts": 2},
		ReportKey:      "permissions/x.csv",
	})
	assertion.Equal("-1", data["Outcome"])
	assertion.Equal("testorg-a,testorg-b", data["Functions"])
	assertion.Equal("123456789013", data["FailedAccounts"])
	assertion.Equal("1", data["FailedAccountCount"])
	assertion.Equal("2", data["totalAccounts"])
	assertion.Equal("permissions/x.csv", data["ReportKey"])
}

func TestResponseDataFitsCloudFormationLimit(t *testing.T) {
	assertion := assert.New(t)

	result := reconciler.Result{
		Outcome:        reconciler.OutcomeFailed,
		Functions:      []string{"testorg-rule"},
		Accounts:       []reconciler.AccountResult{},
		FailedAccounts: []string{},
		Metrics: map[string]int32{
			"totalAccounts":          320,
			"totalFunctions":         1,
			"totalCoverageChecks":    320,
			"totalAddCalls":          320,
			"totalGranted":           0,
			"totalAlreadyGranted":    0,
			"totalFailedPermissions": 320,
			"totalThrottles":         0,
			"totalSkipped":           0,
		},
		ReportKey: "permissions/2024-05-01T10:00:00Z.csv",
	}
	for i := 0; i < 320; i++ {
		accountId := strconv.Itoa(123456789012 + i)
		result.Accounts = append(result.Accounts, reconciler.AccountResult{AccountId: accountId, Status: reconciler.FAILED})
		result.FailedAccounts = append(result.FailedAccounts, accountId)
	}

	data := ResponseData(result)
	failed := data["FailedAccounts"].(string)
	assertion.Len(strings.Split(strings.Split(failed, " ")[0], ","), MaxFailedAccountsInResponse)
	assertion.True(strings.HasPrefix(failed, "123456789012,123456789013,"))
	assertion.True(strings.HasSuffix(failed, " +300 more, see ReportKey"))
	assertion.Equal("320", data["FailedAccountCount"])

	event := sampleEvent(cfn.RequestCreate)
	response := cfn.NewResponse(&event)
	response.Status = cfn.StatusFailed
	response.Reason = "See the details in CloudWatch Log Stream: 2024/05/01/[$LATEST]0123456789abcdef0123456789abcdef"
	response.Data = data
	body, err := json.Marshal(response)
	assertion.NoError(err)
	assertion.Less(len(body), 4096)
}

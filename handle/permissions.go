package handle

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/cfnresponse"
	"github.com/outofoffice3/org-guardrails/internal/reconciler"
)

// RequestCron is sent by the scheduled rule; it carries no response url.
const RequestCron cfn.RequestType = "Cron"

// PermissionsResponse is what the permissions lambda returns to its invoker.
type PermissionsResponse struct {
	RequestType cfn.RequestType    `json:"requestType"`
	Status      cfn.StatusType     `json:"status"`
	Result      *reconciler.Result `json:"result,omitempty"`
}

// HandlePermissionsEvent routes a custom resource lifecycle event.  Only Create, Update and
// Cron run the reconciler, and only Cron skips the cloudformation callback.
func HandlePermissionsEvent(ctx context.Context, event cfn.Event, r reconciler.Reconciler, sender cfnresponse.Sender, sos logger.Logger) PermissionsResponse {
	sos.Infof("request type [%s] request id [%s]", event.RequestType, event.RequestID)
	response := PermissionsResponse{RequestType: event.RequestType}

	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate:
		{
			result := r.Reconcile(ctx)
			response.Result = &result
			response.Status = StatusForOutcome(result.Outcome)
			sender.Send(ctx, event, response.Status, ResponseData(result), "")
		}
	case cfn.RequestDelete:
		{
			// permissions are additive and harmless to leave behind
			response.Status = cfn.StatusSuccess
			sender.Send(ctx, event, response.Status, nil, "")
		}
	case RequestCron:
		{
			result := r.Reconcile(ctx)
			response.Result = &result
			response.Status = StatusForOutcome(result.Outcome)
		}
	default:
		{
			sos.Errorf("unsupported request type [%s]", event.RequestType)
			response.Status = cfn.StatusFailed
			sender.Send(ctx, event, response.Status, nil, "Unsupported request type ["+string(event.RequestType)+"]")
		}
	}
	sos.Infof("request [%s] finished with status [%s]", event.RequestID, response.Status)
	return response
}

// StatusForOutcome maps a reconciliation outcome to a custom resource status.  An organization
// with nothing to process is not a failed deployment.
func StatusForOutcome(outcome reconciler.Outcome) cfn.StatusType {
	if outcome == reconciler.OutcomeFailed {
		return cfn.StatusFailed
	}
	return cfn.StatusSuccess
}

// cloudformation rejects response bodies over 4096 bytes, so lists in Data are capped
const (
	MaxFunctionsInResponse      = 20
	MaxFailedAccountsInResponse = 20
)

// ResponseData is the Data block returned to cloudformation, readable with Fn::GetAtt.  Long
// lists are cut and the report key names where the full detail lives.
func ResponseData(result reconciler.Result) map[string]interface{} {
	data := map[string]interface{}{
		"Outcome":            strconv.Itoa(int(result.Outcome)),
		"Functions":          cappedList(result.Functions, MaxFunctionsInResponse),
		"FailedAccounts":     cappedList(result.FailedAccounts, MaxFailedAccountsInResponse),
		"FailedAccountCount": strconv.Itoa(len(result.FailedAccounts)),
	}
	for name, value := range result.Metrics {
		data[name] = strconv.Itoa(int(value))
	}
	if result.ReportKey != "" {
		data["ReportKey"] = result.ReportKey
	}
	return data
}

func cappedList(values []string, limit int) string {
	if len(values) <= limit {
		return strings.Join(values, ",")
	}
	return strings.Join(values[:limit], ",") + " +" + strconv.Itoa(len(values)-limit) + " more, see ReportKey"
}

package handle

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/notifier"
)

// HandleNotifierEvent runs the csv to slack pipeline for a scheduled event.
func HandleNotifierEvent(ctx context.Context, event events.CloudWatchEvent, n notifier.Notifier, sos logger.Logger) notifier.Result {
	sos.Infof("scheduled event [%s] from [%s] at [%v]", event.ID, event.Source, event.Time)
	if deadline, ok := ctx.Deadline(); ok {
		sos.Debugf("invocation deadline [%v]", deadline)
	}
	result := n.Run(ctx)
	sos.Infof("notifier returned status [%s]", result.Status)
	return result
}

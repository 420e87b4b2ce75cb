package metricmgr

type Metric string

const (
	TotalAccounts       Metric = "totalAccounts"
	TotalSkipped        Metric = "totalSkippedAccounts"
	TotalFunctions      Metric = "totalFunctions"
	TotalCoverageChecks Metric = "totalCoverageChecks"
	TotalAlreadyGranted Metric = "totalAlreadyGranted"
	TotalAddCalls       Metric = "totalAddPermissionCalls"
	TotalGranted        Metric = "totalGranted"

	TotalFailedPermissions Metric = "totalFailedPermissions"
	TotalThrottles         Metric = "totalThrottles"
)

// order metrics are reported in
var allMetrics = []Metric{
	TotalAccounts,
	TotalSkipped,
	TotalFunctions,
	TotalCoverageChecks,
	TotalAlreadyGranted,
	TotalAddCalls,
	TotalGranted,
	TotalFailedPermissions,
	TotalThrottles,
}

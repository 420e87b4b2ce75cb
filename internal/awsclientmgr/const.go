package awsclientmgr

type AWSServiceName string

const (
	ORGANIZATIONS AWSServiceName = "Organizations"
	LAMBDA        AWSServiceName = "Lambda"
	S3            AWSServiceName = "S3"

	// role session name used when assuming the organizations role
	OrganizationsSessionName string = "org-guardrails-permissions"
)

package shared

type AwsConfigCompliance string
type ResourceType string
type EnvVar string
type AccountStatus string

const (
	NON_COMPLIANT AwsConfigCompliance = "NON_COMPLIANT"

	ACTIVE    AccountStatus = "ACTIVE"
	SUSPENDED AccountStatus = "SUSPENDED"
)

// Account is an organization member account as returned by the organizations api.
type Account struct {
	Id     string        `json:"id"`
	Name   string        `json:"name"`
	Status AccountStatus `json:"status"`
}

// IsActive reports whether the account status is ACTIVE.  Accounts with an empty
// status are treated as active.
func (a Account) IsActive() bool {
	return a.Status == "" || a.Status == ACTIVE
}

// ComplianceRow is one parsed line of a compliance report csv.
type ComplianceRow struct {
	AccountId    string `json:"accountId"`
	Guardrail    string `json:"guardrail"`
	ControlName  string `json:"controlName"`
	ResourceType string `json:"resourceType"`
	ResourceArn  string `json:"resourceArn"`
	Compliance   string `json:"compliance"`
}

// Finding is a non compliant row that carries enough data to be reported.
type Finding struct {
	AccountId    string `json:"accountId"`
	Guardrail    string `json:"guardrail"`
	ControlName  string `json:"controlName"`
	ResourceType string `json:"resourceType"`
	ResourceArn  string `json:"resourceArn"`
}

// IsFinding reports whether the row is NON_COMPLIANT and carries an account id and control name.
func (r ComplianceRow) IsFinding() bool {
	return r.Compliance == string(NON_COMPLIANT) && r.AccountId != "" && r.ControlName != ""
}

// ToFinding drops the compliance column.
func (r ComplianceRow) ToFinding() Finding {
	return Finding{
		AccountId:    r.AccountId,
		Guardrail:    r.Guardrail,
		ControlName:  r.ControlName,
		ResourceType: r.ResourceType,
		ResourceArn:  r.ResourceArn,
	}
}

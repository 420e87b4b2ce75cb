package policydoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/outofoffice3/org-guardrails/internal/shared"
)

const SourceAccountKey string = "aws:sourceaccount"

// MatchMode selects which statements count as granting an account.
type MatchMode int

const (
	// statement id or aws:SourceAccount condition, used with service principals
	MatchSourceAccount MatchMode = iota
	// additionally the account named as an AWS principal, used when the account itself is the principal
	MatchAccountPrincipal
)

// Policy is the resource based policy document attached to a lambda function.
type Policy struct {
	Version   string      `json:"Version,omitempty"`
	Id        string      `json:"Id,omitempty"`
	Statement []Statement `json:"Statement"`
}

// Statement is one entry of a resource policy.  Only the fields the reconciler reads are typed.
type Statement struct {
	Sid       string                           `json:"Sid,omitempty"`
	Effect    string                           `json:"Effect,omitempty"`
	Principal Principal                        `json:"Principal,omitempty"`
	Action    StringList                       `json:"Action,omitempty"`
	Resource  StringList                       `json:"Resource,omitempty"`
	Condition map[string]map[string]StringList `json:"Condition,omitempty"`
}

// Principal is either the wildcard "*" or a map such as {"Service": "config.amazonaws.com"}.
type Principal struct {
	Wildcard bool
	Values   map[string]StringList
}

// StringList decodes a json string or array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case nil:
		*s = nil
	case []interface{}:
		list := make(StringList, 0, len(value))
		for _, item := range value {
			list = append(list, scalarString(item))
		}
		*s = list
	case map[string]interface{}:
		return errors.New("expected string or array of strings, got object")
	default:
		*s = StringList{scalarString(value)}
	}
	return nil
}

// condition values are usually strings but booleans and numbers are legal json
func scalarString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

func (p *Principal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Principal{}
		return nil
	}
	var wildcard string
	if err := json.Unmarshal(data, &wildcard); err == nil {
		if wildcard != "*" {
			return errors.New("unexpected principal [" + wildcard + "]")
		}
		p.Wildcard = true
		return nil
	}
	values := map[string]StringList{}
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.New("invalid principal : " + err.Error())
	}
	p.Values = values
	return nil
}

func (p Principal) MarshalJSON() ([]byte, error) {
	if p.Wildcard {
		return json.Marshal("*")
	}
	return json.Marshal(p.Values)
}

// Parse decodes the policy string returned by lambda GetPolicy.  An empty string is an empty policy.
func Parse(document string) (Policy, error) {
	var policy Policy
	if strings.TrimSpace(document) == "" {
		return policy, nil
	}
	if err := json.Unmarshal([]byte(document), &policy); err != nil {
		return Policy{}, errors.New("failed to parse policy document : " + err.Error())
	}
	return policy, nil
}

// SourceAccounts returns the values of the aws:SourceAccount condition, matched case insensitively
// under any operator.
func (s Statement) SourceAccounts() []string {
	var accounts []string
	for _, keys := range s.Condition {
		for key, values := range keys {
			if strings.ToLower(key) == SourceAccountKey {
				accounts = append(accounts, values...)
			}
		}
	}
	return accounts
}

// PrincipalAccounts returns the account ids named as AWS principals, either bare or
// as the account root arn.
func (s Statement) PrincipalAccounts() []string {
	var accounts []string
	for _, value := range s.Principal.Values["AWS"] {
		value = strings.TrimSuffix(strings.TrimPrefix(value, "arn:aws:iam::"), ":root")
		if shared.IsValidAccountId(value) {
			accounts = append(accounts, value)
		}
	}
	return accounts
}

// CoveredAccounts returns the account ids that already have a statement, either because the
// statement id is the one generated for the account or because the statement is conditioned
// on the account as its source.  With MatchAccountPrincipal an account named as the AWS
// principal is covered as well.
func (p Policy) CoveredAccounts(sidPrefix string, accountIds []string, mode MatchMode) map[string]struct{} {
	covered := make(map[string]struct{})
	sids := make(map[string]struct{}, len(p.Statement))
	for _, statement := range p.Statement {
		if statement.Sid != "" {
			sids[statement.Sid] = struct{}{}
		}
		for _, accountId := range statement.SourceAccounts() {
			covered[accountId] = struct{}{}
		}
		if mode != MatchAccountPrincipal {
			continue
		}
		for _, accountId := range statement.PrincipalAccounts() {
			covered[accountId] = struct{}{}
		}
	}
	for _, accountId := range accountIds {
		if _, ok := sids[shared.StatementId(sidPrefix, accountId)]; ok {
			covered[accountId] = struct{}{}
		}
	}
	return covered
}

// AccountsNeedingStatements returns, in input order and without duplicates, the
// account ids that are not covered by the policy.
func AccountsNeedingStatements(policy Policy, sidPrefix string, accountIds []string, mode MatchMode) []string {
	covered := policy.CoveredAccounts(sidPrefix, accountIds, mode)
	missing := make([]string, 0, len(accountIds))
	seen := make(map[string]struct{}, len(accountIds))
	for _, accountId := range accountIds {
		if _, dup := seen[accountId]; dup {
			continue
		}
		seen[accountId] = struct{}{}
		if _, ok := covered[accountId]; !ok {
			missing = append(missing, accountId)
		}
	}
	return missing
}

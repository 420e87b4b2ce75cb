package shared

import (
	"regexp"
	"strings"
)

var (
	organizationIdRegex = regexp.MustCompile(`^o-[a-z0-9]{10,32}$`)
	accountIdRegex      = regexp.MustCompile(`^[0-9]{12}$`)
	statementIdRegex    = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// validate organization id (o-xxxxxxxxxx)
func IsValidOrganizationId(orgId string) bool {
	return organizationIdRegex.MatchString(orgId)
}

// validate 12 digit aws account id
func IsValidAccountId(accountId string) bool {
	return accountIdRegex.MatchString(accountId)
}

// StatementId builds the per account statement id used on the function policy.
// Characters lambda rejects are replaced with '-'.
func StatementId(prefix string, accountId string) string {
	sid := statementIdRegex.ReplaceAllString(prefix+accountId, "-")
	if len(sid) > MaxStatementIdLength {
		// keep the account id, it is what makes the sid unique
		return sid[len(sid)-MaxStatementIdLength:]
	}
	return sid
}

// IsServicePrincipal reports whether the principal is an aws service principal
func IsServicePrincipal(principal string) bool {
	return strings.HasSuffix(principal, ".amazonaws.com")
}

// TruncateString cuts str to maxLength runes, ending in "..." when there is room for it.
func TruncateString(str string, maxLength int) string {
	runes := []rune(str)
	if len(runes) > maxLength {
		if maxLength > 3 {
			return string(runes[:maxLength-3]) + "..."
		}
		return string(runes[:maxLength])
	}
	return str
}

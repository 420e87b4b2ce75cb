package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportCSV = `accountId,controlName,compliance,resourceType
111111111111,C1,COMPLIANT,AWS::S3::Bucket
222222222222,C2,NON_COMPLIANT,AWS::IAM::Role
111111111111,C2,NON_COMPLIANT,AWS::S3::Bucket
333333333333,,NON_COMPLIANT,AWS::S3::Bucket
`

func loadReport(t *testing.T, body string) Table {
	t.Helper()
	table, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	return table
}

func TestNormalizeSelection(t *testing.T) {
	assertion := assert.New(t)
	assertion.Equal([]string{AllOption}, NormalizeSelection(nil))
	assertion.Equal([]string{AllOption}, NormalizeSelection([]string{}))
	assertion.Equal([]string{AllOption}, NormalizeSelection([]string{AllOption}))
	assertion.Equal([]string{AllOption}, NormalizeSelection([]string{" ", ""}))
	assertion.Equal([]string{"a", "b"}, NormalizeSelection([]string{AllOption, "a", "b", "a"}))
	assertion.Equal([]string{"b"}, NormalizeSelection([]string{"b", AllOption}))
}

func TestOptions(t *testing.T) {
	assertion := assert.New(t)
	table := loadReport(t, reportCSV)

	column, _ := table.ColumnIndex("controlName")
	assertion.Equal([]string{AllOption, "C1", "C2"}, Options(table, column))

	column, _ = table.ColumnIndex("accountId")
	assertion.Equal([]string{AllOption, "111111111111", "222222222222", "333333333333"}, Options(table, column))
}

func TestApplyFilters(t *testing.T) {
	assertion := assert.New(t)
	table := loadReport(t, reportCSV)

	// #####################################
	// no selection keeps every row
	// #####################################

	filtered, views := ApplyFilters(table, DefaultFilters, nil)
	assertion.Equal(table.Rows, filtered.Rows)
	assertion.Len(views, 4)
	for _, view := range views {
		assertion.Equal([]string{AllOption}, view.Selected)
	}

	// #####################################
	// single filter
	// #####################################

	filtered, views = ApplyFilters(table, DefaultFilters, map[string][]string{
		"compliance": {"NON_COMPLIANT"},
	})
	assertion.Len(filtered.Rows, 3)
	for _, row := range filtered.Rows {
		assertion.Equal("NON_COMPLIANT", row[2])
	}
	// later filters offer only values left by earlier ones
	assertion.Equal([]string{AllOption, "C2"}, views[2].Options)
	assertion.Equal([]string{AllOption, "AWS::IAM::Role", "AWS::S3::Bucket"}, views[3].Options)

	// #####################################
	// filters combine
	// #####################################

	filtered, _ = ApplyFilters(table, DefaultFilters, map[string][]string{
		"compliance":   {"NON_COMPLIANT"},
		"accountId":    {"111111111111", "333333333333"},
		"resourceType": {AllOption, "AWS::S3::Bucket"},
	})
	assertion.Equal([][]string{
		{"111111111111", "C2", "NON_COMPLIANT", "AWS::S3::Bucket"},
		{"333333333333", "", "NON_COMPLIANT", "AWS::S3::Bucket"},
	}, filtered.Rows)

	// #####################################
	// value not present matches nothing
	// #####################################

	filtered, _ = ApplyFilters(table, DefaultFilters, map[string][]string{
		"accountId": {"999999999999"},
	})
	assertion.Empty(filtered.Rows)
	assertion.Equal(table.Columns, filtered.Columns)

	// #####################################
	// filters on absent columns are skipped
	// #####################################

	partial := loadReport(t, "accountId,status\n111111111111,open\n222222222222,closed\n")
	filtered, views = ApplyFilters(partial, DefaultFilters, map[string][]string{
		"compliance": {"NON_COMPLIANT"},
		"accountId":  {"222222222222"},
	})
	assertion.Len(views, 1)
	assertion.Equal("Account ID", views[0].Label)
	assertion.Equal([][]string{{"222222222222", "closed"}}, filtered.Rows)

	// the input table is never modified
	assertion.Len(table.Rows, 4)
}

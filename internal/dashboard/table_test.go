package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	assertion := assert.New(t)

	// #####################################
	// header and ragged rows
	// #####################################

	body := "\ufeff accountId ,controlName,compliance\n111,C1,COMPLIANT\n222,C2\n333,C3,NON_COMPLIANT,extra\n"
	table, err := ParseCSV(strings.NewReader(body))
	assertion.NoError(err)
	assertion.Equal([]string{"accountId", "controlName", "compliance"}, table.Columns)
	assertion.Equal([][]string{
		{"111", "C1", "COMPLIANT"},
		{"222", "C2", ""},
		{"333", "C3", "NON_COMPLIANT"},
	}, table.Rows)

	index, ok := table.ColumnIndex("compliance")
	assertion.True(ok)
	assertion.Equal(2, index)
	_, ok = table.ColumnIndex("resourceType")
	assertion.False(ok)

	// #####################################
	// header only
	// #####################################

	table, err = ParseCSV(strings.NewReader("accountId,compliance\n"))
	assertion.NoError(err)
	assertion.Empty(table.Rows)
	assertion.NotNil(table.Rows)

	// #####################################
	// empty body
	// #####################################

	_, err = ParseCSV(strings.NewReader(""))
	assertion.ErrorIs(err, ErrNoHeader)
}

package errormgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	assertion := assert.New(t)
	em := New()
	err := Error{
		AccountId:    "123456789012",
		FunctionName: "testorg-rule",
		StatementId:  "testorg-123456789012",
		Code:         "AccessDeniedException",
		Message:      "access denied",
	}

	em.StoreError(err)

	// Test if the error is stored correctly
	emImpl := em.(*_ErrorMgr)
	assertion.Equal(1, len(emImpl.errors))
	assertion.Equal(err, emImpl.errors[0])
	assertion.Equal(err, em.GetErrors()[0])
	assertion.Equal("[testorg-rule] [123456789012] : access denied (AccessDeniedException)", err.Error())
	assertion.Equal("[f] [1] : boom", Error{AccountId: "1", FunctionName: "f", Message: "boom"}.Error())
}

func TestFailedAccountIds(t *testing.T) {
	assertion := assert.New(t)
	em := New()
	em.StoreError(Error{AccountId: "111111111111", FunctionName: "fn-a", Message: "a"})
	em.StoreError(Error{AccountId: "222222222222", FunctionName: "fn-a", Message: "b"})
	em.StoreError(Error{AccountId: "111111111111", FunctionName: "fn-b", Message: "c"})
	em.StoreError(Error{Code: "AccessDeniedException", Message: "failed to discover target functions"})

	assertion.Equal([]string{"111111111111", "222222222222"}, em.GetFailedAccountIds())

	assertion.Len(em.GetErrors(), 4)

	// returned slice is a copy
	errs := em.GetErrors()
	errs[0].Message = "changed"
	assertion.Equal("a", em.GetErrors()[0].Message)
}

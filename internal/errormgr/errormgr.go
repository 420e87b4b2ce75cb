package errormgr

import (
	"sync"
)

// ErrorMgr collects the per account failures of a reconciliation run.
type ErrorMgr interface {
	// store error
	StoreError(err Error)
	// get errors
	GetErrors() []Error
	// failed account ids, in the order they failed, without run level errors
	GetFailedAccountIds() []string
}

// _ErrorMgr is the implementation of ErrorMgr.
type _ErrorMgr struct {
	mu     sync.Mutex
	errors []Error
}

// Error describes why a permission could not be granted to an account.
type Error struct {
	AccountId    string
	FunctionName string
	StatementId  string
	Code         string
	Message      string
}

func (e Error) Error() string {
	msg := "[" + e.FunctionName + "] [" + e.AccountId + "] : " + e.Message
	if e.Code != "" {
		msg = msg + " (" + e.Code + ")"
	}
	return msg
}

// New creates a new instance of ErrorMgr.
func New() ErrorMgr {
	return &_ErrorMgr{
		errors: make([]Error, 0),
	}
}

func (em *_ErrorMgr) StoreError(err Error) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.errors = append(em.errors, err)
}

// GetErrors returns a copy of all stored errors.
func (em *_ErrorMgr) GetErrors() []Error {
	em.mu.Lock()
	defer em.mu.Unlock()
	errs := make([]Error, len(em.errors))
	copy(errs, em.errors)
	return errs
}

func (em *_ErrorMgr) GetFailedAccountIds() []string {
	em.mu.Lock()
	defer em.mu.Unlock()
	seen := make(map[string]struct{})
	accountIds := make([]string, 0, len(em.errors))
	for _, err := range em.errors {
		if err.AccountId == "" {
			continue
		}
		if _, ok := seen[err.AccountId]; ok {
			continue
		}
		seen[err.AccountId] = struct{}{}
		accountIds = append(accountIds, err.AccountId)
	}
	return accountIds
}

package accountlister

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/retry"
	"github.com/outofoffice3/org-guardrails/internal/shared"
)

// OrganizationsAPI is the slice of the organizations client the lister needs.
type OrganizationsAPI interface {
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
}

type AccountLister interface {
	// every account in the organization.  Failures degrade to an empty list.
	ListAccounts(ctx context.Context) []shared.Account
}

type _AccountLister struct {
	client OrganizationsAPI
	policy retry.Policy
	logger logger.Logger
}

type AccountListerInitConfig struct {
	Client      OrganizationsAPI
	RetryPolicy retry.Policy
	Logger      logger.Logger
}

func Init(config AccountListerInitConfig) AccountLister {
	policy := config.RetryPolicy
	// only throttling is retried, a permissions problem will not fix itself
	policy.Retryable = retry.IsThrottle
	lister := &_AccountLister{
		client: config.Client,
		policy: policy,
		logger: config.Logger,
	}
	if lister.policy.OnRetry == nil {
		lister.policy.OnRetry = func(attempt int, err error) {
			lister.logger.Infof("list accounts throttled on attempt [%d], retrying : [%v]", attempt, err)
		}
	}
	return lister
}

func (l *_AccountLister) ListAccounts(ctx context.Context) []shared.Account {
	var (
		accounts  []shared.Account
		nextToken *string
		page      int
	)
	for {
		page++
		input := &organizations.ListAccountsInput{NextToken: nextToken}
		output, _, err := retry.Do(ctx, l.policy, func(ctx context.Context) (*organizations.ListAccountsOutput, error) {
			return l.client.ListAccounts(ctx, input)
		})
		// return errors as an empty list
		if err != nil {
			l.logger.Errorf("failed to list accounts on page [%d], treating organization as empty : [%v]", page, err)
			return []shared.Account{}
		}
		if output == nil {
			l.logger.Errorf("empty list accounts response on page [%d], treating organization as empty", page)
			return []shared.Account{}
		}
		for _, account := range output.Accounts {
			accounts = append(accounts, shared.Account{
				Id:     aws.ToString(account.Id),
				Name:   aws.ToString(account.Name),
				Status: shared.AccountStatus(account.Status),
			})
		}
		if aws.ToString(output.NextToken) == "" {
			break
		}
		nextToken = output.NextToken
	}
	if accounts == nil {
		accounts = []shared.Account{}
	}
	l.logger.Infof("listed [%d] accounts in [%d] pages", len(accounts), page)
	return accounts
}

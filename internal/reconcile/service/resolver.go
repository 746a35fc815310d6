package service

import (
	"context"

	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	"github.com/smallbiznis/vpnbill/internal/reconcile/domain"
)

// Resolver maps subscriber phone numbers to their account and plan. A
// lookup miss is a tagged outcome, never an error; errors mean the
// directory itself failed and the batch cannot proceed.
type Resolver struct {
	directory directorydomain.Directory
}

func NewResolver(directory directorydomain.Directory) *Resolver {
	return &Resolver{directory: directory}
}

func (r *Resolver) Resolve(ctx context.Context, phone string) (domain.Resolution, error) {
	account, err := r.directory.LookupAccountByPhone(ctx, phone)
	if err != nil {
		return domain.Resolution{}, err
	}
	if account == nil {
		return domain.Resolution{Outcome: domain.OutcomeAccountNotFound}, nil
	}

	plan, err := r.directory.LookupPlanByOwner(ctx, int64(account.BillingOwnerID))
	if err != nil {
		return domain.Resolution{}, err
	}
	if plan == nil {
		return domain.Resolution{Outcome: domain.OutcomePlanNotFound}, nil
	}

	return domain.Resolution{
		Outcome: domain.OutcomeResolved,
		Account: account,
		Plan:    plan,
	}, nil
}

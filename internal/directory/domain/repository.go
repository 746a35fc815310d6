package domain

import "context"

// Directory is the subscriber/contract lookup collaborator. A miss is
// reported as (nil, nil) so callers can record the subscriber as unresolved
// instead of aborting the batch.
type Directory interface {
	LookupAccountByPhone(ctx context.Context, phone string) (*SubscriberAccount, error)
	LookupPlanByOwner(ctx context.Context, ownerID int64) (*ServicePlan, error)
}

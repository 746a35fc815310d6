package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	"github.com/smallbiznis/vpnbill/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Repository struct {
	accounts repository.Repository[directorydomain.SubscriberAccount]
	plans    repository.Repository[directorydomain.ServicePlan]
}

type RepositoryParam struct {
	fx.In

	DB *gorm.DB
}

func Provide(p RepositoryParam) directorydomain.Directory {
	return &Repository{
		accounts: repository.ProvideStore[directorydomain.SubscriberAccount](p.DB),
		plans:    repository.ProvideStore[directorydomain.ServicePlan](p.DB),
	}
}

func (r *Repository) LookupAccountByPhone(ctx context.Context, phone string) (*directorydomain.SubscriberAccount, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}
	return r.accounts.FindOne(ctx, &directorydomain.SubscriberAccount{Phone: phone})
}

func (r *Repository) LookupPlanByOwner(ctx context.Context, ownerID int64) (*directorydomain.ServicePlan, error) {
	if ownerID == 0 {
		return nil, nil
	}
	return r.plans.FindOne(ctx, &directorydomain.ServicePlan{OwnerID: snowflake.ID(ownerID)})
}

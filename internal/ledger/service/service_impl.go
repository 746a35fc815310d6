package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
	"github.com/smallbiznis/vpnbill/pkg/db"
	"github.com/smallbiznis/vpnbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) ledgerdomain.Poster {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func NewLister(p ServiceParam) ledgerdomain.Lister {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

// PostDebit records the debit exactly once per idempotency key. A replay
// settles on the stored posting and is flagged Duplicate.
func (s *Service) PostDebit(ctx context.Context, req ledgerdomain.DebitRequest) (*ledgerdomain.PostingConfirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	posting := ledgerdomain.Posting{
		ID:                    s.genID.Generate(),
		AccountID:             req.AccountID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		Memo:                  req.Memo,
		CounterpartyAccountID: req.CounterpartyAccountID,
		BillingPeriod:         req.BillingPeriod,
		IdempotencyKey:        req.IdempotencyKey,
		CreatedAt:             time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(&posting)
	if result.Error != nil && !db.IsDuplicateKeyErr(result.Error) {
		return nil, result.Error
	}

	if result.Error == nil && result.RowsAffected > 0 {
		s.log.Info("ledger debit posted",
			zap.String("account_id", posting.AccountID.String()),
			zap.String("amount", posting.Amount.String()),
			zap.String("billing_period", posting.BillingPeriod),
		)
		return confirmationFor(posting, false), nil
	}

	// Replay: return the posting that won the key.
	var existing ledgerdomain.Posting
	if err := s.db.WithContext(ctx).
		Where("idempotency_key = ?", req.IdempotencyKey).
		First(&existing).Error; err != nil {
		return nil, err
	}
	s.log.Info("ledger debit already posted",
		zap.String("account_id", existing.AccountID.String()),
		zap.String("billing_period", existing.BillingPeriod),
	)
	return confirmationFor(existing, true), nil
}

// ListByAccount pages through an account's postings, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID snowflake.ID, pageToken string, pageSize int) ([]ledgerdomain.Posting, string, error) {
	if accountID == 0 {
		return nil, "", ledgerdomain.ErrInvalidAccount
	}
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 25
	}

	query := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Limit(pageSize + 1)

	if pageToken != "" {
		cursor, err := pagination.DecodeCursor(pageToken)
		if err != nil {
			return nil, "", err
		}
		lastID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, "", err
		}
		query = query.Where("id < ?", lastID)
	}

	var rows []*ledgerdomain.Posting
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	info, page, err := pagination.BuildCursorPageInfo(rows, pageSize, func(p *ledgerdomain.Posting) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.String()}
	})
	if err != nil {
		return nil, "", err
	}

	postings := make([]ledgerdomain.Posting, 0, len(page))
	for _, row := range page {
		postings = append(postings, *row)
	}
	return postings, info.NextPageToken, nil
}

func confirmationFor(posting ledgerdomain.Posting, duplicate bool) *ledgerdomain.PostingConfirmation {
	return &ledgerdomain.PostingConfirmation{
		PostingID:     posting.ID,
		AccountID:     posting.AccountID,
		Amount:        posting.Amount,
		Currency:      posting.Currency,
		BillingPeriod: posting.BillingPeriod,
		Duplicate:     duplicate,
		PostedAt:      posting.CreatedAt,
	}
}

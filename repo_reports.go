package rbac

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Reports is the store adapter for report CRUD
type Reports interface {
	repository.Repository[*Report]

	Submit(ctx context.Context, report *Report) (*Report, error)
	SubmitTx(ctx context.Context, tx bun.IDB, report *Report) (*Report, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Report, error)
}

type reports struct {
	repository.Repository[*Report]
	db *bun.DB
}

var (
	_ Reports                        = (*reports)(nil)
	_ repository.Repository[*Report] = (*reports)(nil)
)

func NewReportsRepository(db *bun.DB) Reports {
	repo := repository.NewRepository[*Report](db, repository.ModelHandlers[*Report]{
		NewRecord: func() *Report { return &Report{} },
		GetID: func(r *Report) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Report, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &reports{
		Repository: repo,
		db:         db,
	}
}

func (a *reports) Submit(ctx context.Context, report *Report) (*Report, error) {
	return a.SubmitTx(ctx, a.db, report)
}

func (a *reports) SubmitTx(ctx context.Context, tx bun.IDB, report *Report) (*Report, error) {
	prepareReportDefaults(report)
	return a.Repository.CreateTx(ctx, tx, report)
}

// ListByUser returns the user's reports newest first, owner preloaded
func (a *reports) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Report, error) {
	var records []*Report

	err := a.db.NewSelect().
		Model(&records).
		Relation("User").
		Where("?TableAlias.user_id = ?", userID).
		Order("submitted_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func prepareReportDefaults(record *Report) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = ReportStatusSubmitted
	}
	if record.SubmittedAt == nil {
		now := time.Now()
		record.SubmittedAt = &now
	}
}

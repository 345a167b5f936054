package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/idx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Actor identifies who performed an administrative action and from where.
type Actor struct {
	ID            string
	Identifier    string
	OriginAddress string
}

// OperationLogService appends and reads the operation log.
type OperationLogService struct {
	Store        store.Store
	StoreTimeout time.Duration
	Now          func() time.Time
}

// Record appends an entry. Failures are logged and swallowed: the
// action being recorded has already happened.
func (s *OperationLogService) Record(
	ctx context.Context,
	actor Actor,
	action domain.OperationAction,
	target domain.OperationTarget,
	targetID, targetLabel string,
	opErr error,
) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	e := domain.OperationLogEntry{
		ID:              idx.NewAt(now).String(),
		ActorID:         actor.ID,
		ActorIdentifier: actor.Identifier,
		Action:          action,
		TargetType:      target,
		TargetID:        targetID,
		TargetLabel:     targetLabel,
		Outcome:         domain.OutcomeSuccess,
		OriginAddress:   actor.OriginAddress,
		OccurredAt:      now,
	}
	if opErr != nil {
		e.Outcome = domain.OutcomeFailure
		e.Detail = opErr.Error()
	}

	// Detached so a cancelled request still leaves its trace.
	sctx, cancel := storeCtx(context.WithoutCancel(ctx), s.StoreTimeout)
	defer cancel()

	if err := s.Store.OperationLogs().Append(sctx, e); err != nil {
		slogx.FromContext(ctx).Error("failed to append operation log",
			slog.String("action", string(action)),
			slog.String("target_type", string(target)),
			slog.Any("error", err),
		)
	}
}

func (s *OperationLogService) Query(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogPage, error) {
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return domain.OperationLogPage{}, invalid("end", "before start")
	}
	f.Limit = clampLimit(f.Limit)
	if f.Offset < 0 {
		f.Offset = 0
	}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	page, err := s.Store.OperationLogs().Query(sctx, f)
	return page, transient(err)
}

func (s *OperationLogService) Statistics(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogStats, error) {
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return domain.OperationLogStats{}, invalid("end", "before start")
	}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	stats, err := s.Store.OperationLogs().Statistics(sctx, f)
	return stats, transient(err)
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

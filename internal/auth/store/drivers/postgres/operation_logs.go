package postgres

import (
	"context"
	"strings"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

type operationLogsRepo struct {
	q dbtx
}

func (r *operationLogsRepo) Append(ctx context.Context, e domain.OperationLogEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO operation_logs (id, actor_id, actor_identifier, action, target_type,
			target_id, target_label, outcome, detail, origin_address, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.ActorID, e.ActorIdentifier, string(e.Action), string(e.TargetType),
		e.TargetID, e.TargetLabel, string(e.Outcome), e.Detail, e.OriginAddress, e.OccurredAt.UTC())
	return mapErr(err)
}

func logWhere(f domain.OperationLogFilter, p *params) string {
	conds := []string{"TRUE"}
	if f.ActorIdentifier != "" {
		conds = append(conds, "lower(actor_identifier) = lower("+p.add(f.ActorIdentifier)+")")
	}
	if f.Action != "" {
		conds = append(conds, "action = "+p.add(string(f.Action)))
	}
	if f.TargetType != "" {
		conds = append(conds, "target_type = "+p.add(string(f.TargetType)))
	}
	if f.Outcome != "" {
		conds = append(conds, "outcome = "+p.add(string(f.Outcome)))
	}
	if f.Start != nil {
		conds = append(conds, "occurred_at >= "+p.add(f.Start.UTC()))
	}
	if f.End != nil {
		conds = append(conds, "occurred_at <= "+p.add(f.End.UTC()))
	}
	return strings.Join(conds, " AND ")
}

func (r *operationLogsRepo) Query(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogPage, error) {
	var p params
	where := logWhere(f, &p)

	var page domain.OperationLogPage
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM operation_logs WHERE `+where, p.vals...).
		Scan(&page.Total); err != nil {
		return domain.OperationLogPage{}, mapErr(err)
	}

	limit, offset := p.add(f.Limit), p.add(f.Offset)
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, actor_id, actor_identifier, action, target_type, target_id,
			target_label, outcome, detail, origin_address, occurred_at
		FROM operation_logs WHERE `+where+`
		ORDER BY occurred_at DESC, id DESC LIMIT `+limit+` OFFSET `+offset, p.vals...)
	if err != nil {
		return domain.OperationLogPage{}, mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                       domain.OperationLogEntry
			action, target, outcome string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorIdentifier, &action, &target, &e.TargetID,
			&e.TargetLabel, &outcome, &e.Detail, &e.OriginAddress, &e.OccurredAt); err != nil {
			return domain.OperationLogPage{}, mapErr(err)
		}
		e.Action = domain.OperationAction(action)
		e.TargetType = domain.OperationTarget(target)
		e.Outcome = domain.OperationOutcome(outcome)
		e.OccurredAt = e.OccurredAt.UTC()
		page.Entries = append(page.Entries, e)
	}
	return page, mapErr(rows.Err())
}

func (r *operationLogsRepo) Statistics(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogStats, error) {
	var p params
	where := logWhere(f, &p)

	rows, err := r.q.QueryContext(ctx, `
		SELECT action, outcome, COUNT(*) FROM operation_logs
		WHERE `+where+` GROUP BY action, outcome`, p.vals...)
	if err != nil {
		return domain.OperationLogStats{}, mapErr(err)
	}
	defer rows.Close()

	stats := domain.OperationLogStats{ByAction: make(map[domain.OperationAction]int)}
	for rows.Next() {
		var (
			action, outcome string
			n               int
		)
		if err := rows.Scan(&action, &outcome, &n); err != nil {
			return domain.OperationLogStats{}, mapErr(err)
		}
		stats.Total += n
		stats.ByAction[domain.OperationAction(action)] += n
		if domain.OperationOutcome(outcome) == domain.OutcomeSuccess {
			stats.Success += n
		} else {
			stats.Failure += n
		}
	}
	return stats, mapErr(rows.Err())
}

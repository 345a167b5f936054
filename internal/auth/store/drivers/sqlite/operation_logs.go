package sqlite

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActorID, e.ActorIdentifier, string(e.Action), string(e.TargetType),
		e.TargetID, e.TargetLabel, string(e.Outcome), e.Detail, e.OriginAddress, e.OccurredAt.UTC())
	return mapErr(err)
}

// logWhere builds the WHERE clause shared by Query and Statistics.
func logWhere(f domain.OperationLogFilter) (string, []any) {
	conds := []string{"1 = 1"}
	var args []any

	if f.ActorIdentifier != "" {
		conds = append(conds, "actor_identifier = ? COLLATE NOCASE")
		args = append(args, f.ActorIdentifier)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, string(f.Action))
	}
	if f.TargetType != "" {
		conds = append(conds, "target_type = ?")
		args = append(args, string(f.TargetType))
	}
	if f.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if f.Start != nil {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.End.UTC())
	}
	return strings.Join(conds, " AND "), args
}

func (r *operationLogsRepo) Query(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogPage, error) {
	where, args := logWhere(f)

	var page domain.OperationLogPage
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM operation_logs WHERE `+where, args...).
		Scan(&page.Total); err != nil {
		return domain.OperationLogPage{}, mapErr(err)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, actor_id, actor_identifier, action, target_type, target_id,
			target_label, outcome, detail, origin_address, occurred_at
		FROM operation_logs WHERE `+where+`
		ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
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
	where, args := logWhere(f)

	rows, err := r.q.QueryContext(ctx, `
		SELECT action, outcome, COUNT(*) FROM operation_logs
		WHERE `+where+` GROUP BY action, outcome`, args...)
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

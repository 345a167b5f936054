package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
)

// AdminLogsHandler serves the operation log.
type AdminLogsHandler struct {
	LogService *service.OperationLogService
}

func parseTimeParam(q map[string][]string, key string) (*time.Time, error) {
	vals := q[key]
	if len(vals) == 0 || vals[0] == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, vals[0])
	if err != nil {
		return nil, &service.ValidationError{Field: key, Reason: "must be an RFC3339 timestamp"}
	}
	t = t.UTC()
	return &t, nil
}

// logFilter reads the filters shared by the list and statistics endpoints.
func logFilter(r *http.Request) (domain.OperationLogFilter, error) {
	q := r.URL.Query()
	f := domain.OperationLogFilter{ActorIdentifier: strings.TrimSpace(q.Get("actor"))}

	var err error
	if f.Start, err = parseTimeParam(q, "start"); err != nil {
		return f, err
	}
	if f.End, err = parseTimeParam(q, "end"); err != nil {
		return f, err
	}
	return f, nil
}

// HandleList handles GET /v1/admin/logs
//
//	@Summary		Query the operation log
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page		query		int		false	"Page, from 1"	default(1)
//	@Param			size		query		int		false	"Page size"		default(10)
//	@Param			actor		query		string	false	"Actor username"
//	@Param			action		query		string	false	"CREATE, UPDATE, DELETE or QUERY"
//	@Param			target_type	query		string	false	"USER, USER_PASSWORD or USER_LOCK"
//	@Param			success		query		bool	false	"Outcome"
//	@Param			start		query		string	false	"RFC3339 lower bound"
//	@Param			end			query		string	false	"RFC3339 upper bound"
//	@Success		200			{object}	authsdk.OperationLogListResponse
//	@Failure		400			{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		403			{object}	authsdk.ErrorResponse	"insufficient_role"
//	@Router			/v1/admin/logs [get].
func (h *AdminLogsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	f, err := logFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	f.Action = domain.OperationAction(strings.ToUpper(q.Get("action")))
	f.TargetType = domain.OperationTarget(strings.ToUpper(q.Get("target_type")))
	if v := q.Get("success"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			writeServiceError(w, r, &service.ValidationError{Field: "success", Reason: "must be true or false"})
			return
		}
		f.Outcome = domain.OutcomeFailure
		if ok {
			f.Outcome = domain.OutcomeSuccess
		}
	}
	f.Offset, f.Limit = (page-1)*size, size

	res, err := h.LogService.Query(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logs := make([]authsdk.OperationLogResponse, 0, len(res.Entries))
	for _, e := range res.Entries {
		logs = append(logs, toLogResponse(e))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.OperationLogListResponse{Logs: logs, Total: res.Total, Page: page, Size: size})
}

// HandleStatistics handles GET /v1/admin/logs/statistics
//
//	@Summary		Operation log statistics
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			actor	query		string	false	"Actor username"
//	@Param			start	query		string	false	"RFC3339 lower bound"
//	@Param			end		query		string	false	"RFC3339 upper bound"
//	@Success		200		{object}	authsdk.OperationLogStatsResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/v1/admin/logs/statistics [get].
func (h *AdminLogsHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	f, err := logFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	stats, err := h.LogService.Statistics(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	byAction := make(map[string]int, len(stats.ByAction))
	for k, v := range stats.ByAction {
		byAction[string(k)] = v
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.OperationLogStatsResponse{
		Total:    stats.Total,
		Success:  stats.Success,
		Failure:  stats.Failure,
		ByAction: byAction,
	})
}

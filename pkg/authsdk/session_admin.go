package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Admin operations. The session must carry the admin role; otherwise
// every call fails with ErrInsufficientRole.

func (s *Session) ListUsers(ctx context.Context, p ListUsersParams) (*UserListResponse, error) {
	q := url.Values{}
	setInt(q, "page", p.Page)
	setInt(q, "size", p.Size)
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}

	resp, err := s.do(ctx, http.MethodGet, withQuery("/v1/admin/users", q), nil)
	if err != nil {
		return nil, err
	}

	var list UserListResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Session) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodGet, "/v1/admin/users/"+url.PathEscape(id), nil, http.StatusOK)
}

func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPost, "/v1/admin/users", req, http.StatusCreated)
}

func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(id), req, http.StatusOK)
}

func (s *Session) UnlockUser(ctx context.Context, id string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPost, "/v1/admin/users/"+url.PathEscape(id)+"/unlock", nil, http.StatusOK)
}

func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/v1/admin/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) SetUserPassword(ctx context.Context, id, password string) error {
	resp, err := s.do(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(id)+"/password", SetPasswordRequest{Password: password})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) ListLogs(ctx context.Context, p ListLogsParams) (*OperationLogListResponse, error) {
	q := logQuery(p)
	setInt(q, "page", p.Page)
	setInt(q, "size", p.Size)
	if p.Action != "" {
		q.Set("action", p.Action)
	}
	if p.TargetType != "" {
		q.Set("target_type", p.TargetType)
	}
	if p.Success != nil {
		q.Set("success", strconv.FormatBool(*p.Success))
	}

	resp, err := s.do(ctx, http.MethodGet, withQuery("/v1/admin/logs", q), nil)
	if err != nil {
		return nil, err
	}

	var list OperationLogListResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}
	return &list, nil
}

// LogStatistics honours the Actor, Start and End fields of p.
func (s *Session) LogStatistics(ctx context.Context, p ListLogsParams) (*OperationLogStatsResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, withQuery("/v1/admin/logs/statistics", logQuery(p)), nil)
	if err != nil {
		return nil, err
	}

	var stats OperationLogStatsResponse
	if err := decodeJSON(resp, &stats, http.StatusOK); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Session) userCall(ctx context.Context, method, path string, body any, want int) (*UserResponse, error) {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, want); err != nil {
		return nil, err
	}
	return &user, nil
}

func logQuery(p ListLogsParams) url.Values {
	q := url.Values{}
	if p.Actor != "" {
		q.Set("actor", p.Actor)
	}
	if p.Start != nil {
		q.Set("start", p.Start.Format(time.RFC3339))
	}
	if p.End != nil {
		q.Set("end", p.End.Format(time.RFC3339))
	}
	return q
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

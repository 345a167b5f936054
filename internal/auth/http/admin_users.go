package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
)

// actorFrom identifies the administrator behind r for the operation log.
func actorFrom(r *http.Request) service.Actor {
	claims, _ := httpx.ClaimsFromContext(r.Context())
	return service.Actor{
		ID:            claims.Subject,
		Identifier:    claims.Username,
		OriginAddress: httpx.ClientIP(r),
	}
}

// pageParams reads 1-based page and size query parameters.
func pageParams(r *http.Request) (page, size int, err error) {
	q := r.URL.Query()
	page, size = 1, service.DefaultPageSize
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, &service.ValidationError{Field: "page", Reason: "must be a positive integer"}
		}
	}
	if v := q.Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil || size < 1 || size > service.MaxPageSize {
			return 0, 0, &service.ValidationError{Field: "size", Reason: "must be between 1 and 100"}
		}
	}
	return page, size, nil
}

// AdminUsersHandler serves account management for administrators.
type AdminUsersHandler struct {
	AdminService *service.AdminService
}

// HandleList handles GET /v1/admin/users
//
//	@Summary		List users
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page	query		int						false	"Page, from 1"	default(1)
//	@Param			size	query		int						false	"Page size"		default(10)
//	@Param			keyword	query		string					false	"Matches username, email or full name"
//	@Success		200		{object}	authsdk.UserListResponse
//	@Failure		403		{object}	authsdk.ErrorResponse	"insufficient_role"
//	@Router			/v1/admin/users [get].
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.AdminService.List(r.Context(), actorFrom(r), domain.AccountFilter{
		Keyword: r.URL.Query().Get("keyword"),
		Offset:  (page - 1) * size,
		Limit:   size,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	users := make([]authsdk.UserResponse, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		users = append(users, toUserResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserListResponse{Users: users, Total: res.Total, Page: page, Size: size})
}

// HandleGet handles GET /v1/admin/users/{id}
//
//	@Summary		Get a user
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/users/{id} [get].
func (h *AdminUsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	acct, err := h.AdminService.Get(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(acct))
}

// HandleCreate handles POST /v1/admin/users
//
//	@Summary		Create a user
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"duplicate_identifier or duplicate_email"
//	@Router			/v1/admin/users [post].
func (h *AdminUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acct, err := h.AdminService.Create(r.Context(), actorFrom(r), service.AdminCreateRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     domain.Role(strings.ToLower(req.Role)),
		Enabled:  req.Enabled,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(acct))
}

// HandleUpdate handles PUT /v1/admin/users/{id}
//
//	@Summary		Update a user
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Account ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		404		{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/users/{id} [put].
func (h *AdminUsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u := service.AdminUpdate{ProfileUpdate: toProfileUpdate(req.UpdateProfileRequest), Enabled: req.Enabled}
	if req.Role != nil {
		role := domain.Role(strings.ToLower(*req.Role))
		u.Role = &role
	}

	acct, err := h.AdminService.Update(r.Context(), actorFrom(r), r.PathValue("id"), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(acct))
}

// HandleDelete handles DELETE /v1/admin/users/{id}
//
//	@Summary		Delete a user
//	@Description	Soft deletes the account. Its username and email become available again.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Account ID"
//	@Success		204
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/users/{id} [delete].
func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.AdminService.Delete(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetPassword handles PUT /v1/admin/users/{id}/password
//
//	@Summary		Reset a user's password
//	@Description	Replaces the password and lifts any lockout.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string						true	"Account ID"
//	@Param			request	body	authsdk.SetPasswordRequest	true	"New password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/users/{id}/password [put].
func (h *AdminUsersHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.AdminService.SetPassword(r.Context(), actorFrom(r), r.PathValue("id"), req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnlock handles POST /v1/admin/users/{id}/unlock
//
//	@Summary		Unlock a user
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/admin/users/{id}/unlock [post].
func (h *AdminUsersHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	acct, err := h.AdminService.Unlock(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(acct))
}

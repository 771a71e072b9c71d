package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"cca-polling/internal/domain/user"
	"cca-polling/internal/logger"
	"cca-polling/internal/platform/apperr"
)

// accountView is an account as administrators see it: the stored user plus
// the CCAs it belongs to.
type accountView struct {
	user.User
	CCAIDs []int64 `json:"cca_ids"`
}

type roleChange struct {
	Role string `json:"role"`
}

func (h *Handler) accountOf(ctx context.Context, u user.User) (accountView, error) {
	ccas, err := h.members.CCAsOf(ctx, u.ID)
	if err != nil {
		return accountView{}, err
	}
	if ccas == nil {
		ccas = []int64{}
	}
	return accountView{User: u, CCAIDs: ccas}, nil
}

// @Summary     List accounts with their CCA memberships
// @Tags        users
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}  accountView
// @Router      /api/v1/users [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}

	views := make([]accountView, 0, len(users))
	for _, u := range users {
		v, err := h.accountOf(r.Context(), u)
		if err != nil {
			errorResponse(w, err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

// @Summary     Get one account
// @Tags        users
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "User ID"
// @Success     200  {object}  accountView
// @Failure     404  {object}  map[string]string  "unknown user"
// @Router      /api/v1/users/{id} [get]
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid user id", err))
		return
	}
	h.writeAccount(w, r, id, http.StatusOK)
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, id int64, status int) {
	u, err := h.userSvc.GetByID(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	v, err := h.accountOf(r.Context(), *u)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, status, v)
}

// @Summary     Change the system role of an account
// @Description Promoting an account to admin withdraws its unused vote tokens.
// @Tags        users
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64       true  "User ID"
// @Param       request  body      roleChange  true  "admin or student"
// @Success     200      {object}  accountView
// @Failure     400      {object}  map[string]string  "invalid role or own account"
// @Failure     404      {object}  map[string]string  "unknown user"
// @Router      /api/v1/users/{id}/role [patch]
func (h *Handler) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid user id", err))
		return
	}
	admin := callerFromCtx(r)
	if id == admin.UserID {
		errorResponse(w, apperr.BadRequest("own_account", "administrators cannot change their own role", nil))
		return
	}

	var req roleChange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if err := h.userSvc.UpdateRole(r.Context(), id, req.Role); err != nil {
		errorResponse(w, err)
		return
	}

	revoked := int64(0)
	if req.Role == user.RoleAdmin {
		if revoked, err = h.voteSvc.RevokeTokens(r.Context(), id); err != nil {
			errorResponse(w, err)
			return
		}
	}
	logger.Info("account role changed",
		zap.Int64("admin_id", admin.UserID),
		zap.Int64("user_id", id),
		zap.String("role", req.Role),
		zap.Int64("tokens_revoked", revoked),
	)

	h.writeAccount(w, r, id, http.StatusOK)
}

// @Summary     Deactivate an account
// @Description The account can no longer sign in or use tokens it already holds. Its unused vote tokens are withdrawn; ballots already cast stay counted.
// @Tags        users
// @Security    BearerAuth
// @Param       id   path  int64  true  "User ID"
// @Success     204
// @Failure     400  {object}  map[string]string  "own account"
// @Failure     404  {object}  map[string]string  "unknown user"
// @Router      /api/v1/users/{id}/deactivate [patch]
func (h *Handler) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid user id", err))
		return
	}
	admin := callerFromCtx(r)
	if id == admin.UserID {
		errorResponse(w, apperr.BadRequest("own_account", "administrators cannot deactivate themselves", nil))
		return
	}

	if err := h.userSvc.Deactivate(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	revoked, err := h.voteSvc.RevokeTokens(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	logger.Info("account deactivated",
		zap.Int64("admin_id", admin.UserID),
		zap.Int64("user_id", id),
		zap.Int64("tokens_revoked", revoked),
	)

	w.WriteHeader(http.StatusNoContent)
}

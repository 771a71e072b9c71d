package api

import (
	"encoding/json"
	"net/http"

	"cca-polling/internal/domain/membership"
	"cca-polling/internal/platform/apperr"
)

type createCCARequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// @Summary     Create CCA
// @Tags        ccas
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createCCARequest  true  "CCA"
// @Success     201      {object}  membership.CCA
// @Router      /api/v1/ccas [post]
func (h *Handler) handleCreateCCA(w http.ResponseWriter, r *http.Request) {
	var req createCCARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	cca, err := h.members.CreateCCA(r.Context(), req.Name)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cca)
}

// @Summary     Add or update a CCA member
// @Tags        ccas
// @Security    BearerAuth
// @Accept      json
// @Param       id       path  int64             true  "CCA ID"
// @Param       request  body  addMemberRequest  true  "Member and role"
// @Success     204
// @Failure     400  {object}  map[string]string  "invalid role"
// @Failure     404  {object}  map[string]string  "unknown user"
// @Router      /api/v1/ccas/{id}/members [post]
func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	ccaID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid cca id", err))
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Role == "" {
		req.Role = string(membership.RoleMember)
	}

	if _, err := h.userSvc.GetByID(r.Context(), req.UserID); err != nil {
		errorResponse(w, err)
		return
	}
	if err := h.members.AddMember(r.Context(), ccaID, req.UserID, membership.Role(req.Role)); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

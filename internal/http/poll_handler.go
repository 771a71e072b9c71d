package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cca-polling/internal/domain/poll"
	"cca-polling/internal/logger"
	"cca-polling/internal/metrics"
	"cca-polling/internal/platform/apperr"
)

type createPollRequest struct {
	CCAID        int64     `json:"cca_id"`
	Question     string    `json:"question"`
	QuestionType string    `json:"question_type"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	IsAnonymous  bool      `json:"is_anonymous"`
	Options      []string  `json:"options"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// @Summary     Create poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest  true  "Poll definition"
// @Success     201      {object}  map[string]int64
// @Failure     400      {object}  map[string]string  "validation error"
// @Failure     403      {object}  map[string]string  "not a moderator of the cca"
// @Router      /api/v1/polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.CCAID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "cca_id is required", nil))
		return
	}

	p := &poll.Poll{
		CCAID:        req.CCAID,
		Question:     req.Question,
		QuestionType: poll.QuestionType(req.QuestionType),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		IsAnonymous:  req.IsAnonymous,
	}
	opts := make([]poll.Option, 0, len(req.Options))
	for _, text := range req.Options {
		opts = append(opts, poll.Option{Text: text})
	}

	caller := callerFromCtx(r)
	id, err := h.pollSvc.Create(r.Context(), caller, p, opts)
	if err != nil {
		errorResponse(w, err)
		return
	}

	logger.Info("poll created", zap.Int64("poll_id", id), zap.Int64("cca_id", p.CCAID), zap.Bool("anonymous", p.IsAnonymous))
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// @Summary     List polls
// @Description Members see the polls of their CCAs with phase and time left; administrators see every poll with its vote count.
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}   poll.Listing
// @Router      /api/v1/polls [get]
func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	caller := callerFromCtx(r)
	if caller.IsAdmin() {
		polls, err := h.pollSvc.ListAll(r.Context(), caller)
		if err != nil {
			errorResponse(w, err)
			return
		}
		writeJSON(w, http.StatusOK, polls)
		return
	}

	polls, err := h.pollSvc.ListForMember(r.Context(), caller)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// @Summary     Poll status
// @Description Opening an active anonymous poll returns a fresh single-use vote token; any earlier unused token stops working.
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  vote.Status
// @Failure     403  {object}  map[string]string  "not eligible"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id} [get]
func (h *Handler) handlePollStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	st, err := h.voteSvc.Status(r.Context(), id, callerFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	if st.VoteToken != "" {
		metrics.IncTokenIssued()
		w.Header().Set("Cache-Control", "no-store")
	}

	writeJSON(w, http.StatusOK, st)
}

// @Summary     Enable or disable a poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Param       id       path  int64             true  "Poll ID"
// @Param       request  body  setActiveRequest  true  "Kill-switch state"
// @Success     204
// @Failure     403  {object}  map[string]string  "forbidden"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id}/active [patch]
func (h *Handler) handleSetPollActive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "is_active is required", err))
		return
	}

	if err := h.pollSvc.SetActive(r.Context(), callerFromCtx(r), id, *req.IsActive); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

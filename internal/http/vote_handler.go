package api

import (
	"encoding/json"
	"net/http"

	"cca-polling/internal/metrics"
	"cca-polling/internal/platform/apperr"
	"cca-polling/internal/worker"
)

type voteRequest struct {
	OptionIDs []int64 `json:"option_ids"`
	VoteToken string  `json:"vote_token,omitempty"`
}

// @Summary     Submit a ballot
// @Description Anonymous polls need the vote_token from the poll status; it may also be sent in the X-Vote-Token header.
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      voteRequest  true  "Ballot"
// @Success     201      {object}  vote.Receipt
// @Failure     400      {object}  map[string]string  "invalid option, cardinality or token"
// @Failure     403      {object}  map[string]string  "not eligible"
// @Failure     404      {object}  map[string]string  "not found"
// @Failure     409      {object}  map[string]string  "already voted"
// @Failure     410      {object}  map[string]string  "token expired"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Router      /api/v1/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.VoteToken == "" {
		req.VoteToken = r.Header.Get("X-Vote-Token")
	}

	receipt, err := h.voteSvc.Submit(r.Context(), pollID, callerFromCtx(r), req.OptionIDs, req.VoteToken)
	if err != nil {
		metrics.IncBallot(errorCode(err))
		errorResponse(w, err)
		return
	}
	metrics.IncBallot("accepted")

	if h.voteCh != nil {
		select {
		case h.voteCh <- worker.VoteEvent{PollID: pollID, Options: receipt.Options, Anonymous: receipt.Anonymous}:
		default:
		}
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// @Summary     Poll results
// @Description Anonymous poll results are limited to CCA moderators and administrators and never list voters.
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  vote.Aggregate
// @Failure     403  {object}  map[string]string  "not authorized"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	agg, err := h.voteSvc.Results(r.Context(), pollID, callerFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agg)
}

package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cca-polling/internal/domain/membership"
	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
	"cca-polling/internal/logger"
	"cca-polling/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", appErr.Code), zap.Error(appErr.Err))
	}
	writeJSON(w, appErr.StatusCode(), appErr.Body())
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	// Ballot pipeline.
	case errors.Is(err, vote.ErrPollNotFound), errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, vote.ErrNotEligible):
		return apperr.Forbidden("not_eligible", "you are not eligible to vote in this poll", err)
	case errors.Is(err, vote.ErrPollNotActive):
		return apperr.BadRequest("poll_not_active", "poll is not active", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.Conflict("already_voted", "you have already voted in this poll", err)
	case errors.Is(err, vote.ErrInvalidOption):
		return apperr.BadRequest("invalid_option", "option does not belong to poll", err)
	case errors.Is(err, vote.ErrCardinality):
		return apperr.BadRequest("cardinality_violation", "wrong number of options for this question", err)
	case errors.Is(err, vote.ErrMissingToken):
		return apperr.BadRequest("missing_vote_token", "vote token required", err)
	case errors.Is(err, vote.ErrInvalidToken):
		return apperr.BadRequest("invalid_vote_token", "invalid vote token", err)
	case errors.Is(err, vote.ErrTokenExpired):
		return apperr.Gone("vote_token_expired", "vote token expired, reload the poll", err)
	case errors.Is(err, vote.ErrTokenAlreadyUsed):
		return apperr.Conflict("vote_token_used", "vote token already used", err)
	case errors.Is(err, vote.ErrNotAuthorized):
		return apperr.Forbidden("not_authorized", "you may not view these results", err)
	case errors.Is(err, vote.ErrStorageFailure):
		return apperr.Internal("storage_failure", http.StatusText(http.StatusInternalServerError), err)

	// Poll management.
	case errors.Is(err, poll.ErrForbidden):
		return apperr.Forbidden("forbidden", "only cca moderators can manage this poll", err)
	case errors.Is(err, poll.ErrQuestionRequired):
		return apperr.BadRequest("question_required", "question is required", err)
	case errors.Is(err, poll.ErrInvalidQuestionType):
		return apperr.BadRequest("invalid_question_type", "question_type must be single or multiple", err)
	case errors.Is(err, poll.ErrOptionCount):
		return apperr.BadRequest("invalid_options", "a poll needs between 2 and 10 non-empty options", err)
	case errors.Is(err, poll.ErrDuplicateOption):
		return apperr.BadRequest("duplicate_option", "option texts must be unique", err)
	case errors.Is(err, poll.ErrInvalidDates):
		return apperr.BadRequest("invalid_dates", "end_time must be after start_time", err)

	// Membership.
	case errors.Is(err, membership.ErrInvalidRole):
		return apperr.BadRequest("invalid_role", "role must be member or moderator", err)
	case errors.Is(err, membership.ErrNameMissing):
		return apperr.BadRequest("name_required", "cca name is required", err)

	// Users.
	case errors.Is(err, user.ErrNotFound):
		return apperr.NotFound("user_not_found", "user not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrInactiveUser):
		return apperr.Unauthorized("inactive_user", "user is inactive", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.Conflict("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrMissingFields):
		return apperr.BadRequest("invalid_input", "email, name and password are required", err)
	case errors.Is(err, user.ErrInvalidRole):
		return apperr.BadRequest("invalid_role", "role must be admin or student", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}

// errorCode is the metric label for a failed submission.
func errorCode(err error) string {
	return mapError(err).Code
}

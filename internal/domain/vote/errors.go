package vote

import (
	"errors"
	"fmt"
)

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrNotEligible      = errors.New("caller is not eligible to vote in this poll")
	ErrPollNotActive    = errors.New("poll is not active")
	ErrAlreadyVoted     = errors.New("caller already voted in this poll")
	ErrInvalidOption    = errors.New("option does not belong to poll")
	ErrCardinality      = errors.New("wrong number of options for question type")
	ErrMissingToken     = errors.New("vote token required for anonymous poll")
	ErrInvalidToken     = errors.New("invalid vote token")
	ErrTokenExpired     = errors.New("vote token expired")
	ErrTokenAlreadyUsed = errors.New("vote token already used")
	ErrNotAuthorized    = errors.New("caller may not view these results")
	ErrStorageFailure   = errors.New("storage failure")

	// ErrTokenNotFound is returned by stores; the service never surfaces it.
	ErrTokenNotFound = errors.New("vote token not found")
)

var kinds = []error{
	ErrPollNotFound, ErrNotEligible, ErrPollNotActive, ErrAlreadyVoted,
	ErrInvalidOption, ErrCardinality, ErrMissingToken, ErrInvalidToken,
	ErrTokenExpired, ErrTokenAlreadyUsed, ErrNotAuthorized, ErrStorageFailure,
}

// storageFailure passes domain errors through and wraps everything else in
// ErrStorageFailure so callers always see a specific kind.
func storageFailure(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

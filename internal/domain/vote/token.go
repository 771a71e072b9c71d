package vote

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const tokenBytes = 32

// IssuedToken is what a voter receives when opening an anonymous poll. Raw
// is empty when the caller has already voted.
type IssuedToken struct {
	Raw       string
	ExpiresAt time.Time
	Consumed  bool
}

func newRawToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate vote token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken keys the digest with the server secret and binds it to the
// (poll, user) pair, so a stored hash is useless for any other ballot.
func hashToken(secret []byte, pollID, userID int64, raw string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(strconv.FormatInt(pollID, 10)))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.FormatInt(userID, 10)))
	h.Write([]byte{':'})
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

func tokenMatches(stored, computed string) bool {
	return hmac.Equal([]byte(stored), []byte(computed))
}

// issueOrReuse hands out the single live token for (poll, user). A fresh
// value is generated on every call while the token is unused; the previous
// hash is overwritten and stops validating. A consumed token is never
// reissued.
func (s *Service) issueOrReuse(ctx context.Context, pollID, userID int64, now time.Time) (*IssuedToken, error) {
	var issued IssuedToken
	err := s.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.TokenForUpdate(ctx, pollID, userID)
		switch {
		case errors.Is(err, ErrTokenNotFound):
		case err != nil:
			return err
		case cur.Used:
			issued.Consumed = true
			return nil
		}

		raw, err := newRawToken()
		if err != nil {
			return err
		}
		t := &Token{
			Hash:      hashToken(s.cfg.TokenSecret, pollID, userID, raw),
			PollID:    pollID,
			UserID:    userID,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.cfg.TokenTTL),
		}
		if err := tx.SaveToken(ctx, t); err != nil {
			return err
		}
		issued.Raw = raw
		issued.ExpiresAt = t.ExpiresAt
		return nil
	})
	if err != nil {
		return nil, storageFailure(err)
	}
	return &issued, nil
}

// validateAndConsume must run inside the transaction that writes the vote
// rows; the token row stays locked until that transaction ends.
func (s *Service) validateAndConsume(ctx context.Context, tx Tx, pollID, userID int64, raw string, now time.Time) error {
	t, err := tx.TokenForUpdate(ctx, pollID, userID)
	if errors.Is(err, ErrTokenNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !tokenMatches(t.Hash, hashToken(s.cfg.TokenSecret, pollID, userID, raw)) {
		return ErrInvalidToken
	}
	if t.Used {
		return ErrTokenAlreadyUsed
	}
	if now.After(t.ExpiresAt) {
		return ErrTokenExpired
	}
	return tx.MarkTokenUsed(ctx, pollID, userID)
}

// RevokeTokens invalidates every unused token the user holds. It runs when
// an account loses the right to vote; a later poll view issues a new token
// only if the account is allowed to vote again.
func (s *Service) RevokeTokens(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.DiscardUnusedTokens(ctx, userID)
	if err != nil {
		return 0, storageFailure(err)
	}
	return n, nil
}

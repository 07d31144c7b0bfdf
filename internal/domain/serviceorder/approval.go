package serviceorder

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"oficina/internal/core/apperror"
)

const (
	// TokenBytes is the entropy of an approval token before hex encoding.
	TokenBytes = 32

	// DefaultLinkTTL is how long an approval link stays usable.
	DefaultLinkTTL = 7 * 24 * time.Hour
)

// Decision values stored on a used approval.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// BudgetApproval is the single live approval link of an order. Only the
// SHA-256 of the token is stored; regenerating replaces the whole value.
type BudgetApproval struct {
	TokenHash       string     `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	Used            bool       `json:"used"`
	UsedAt          *time.Time `json:"usedAt,omitempty"`
	Decision        *string    `json:"decision,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
}

// NewApproval mints a token and the approval that stores its hash.
func NewApproval(now time.Time, ttl time.Duration) (string, *BudgetApproval, error) {
	token, err := generateRandomToken(TokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate approval token: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return token, &BudgetApproval{
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether now is past the expiry.
func (a *BudgetApproval) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// CheckReadable fails with LinkExpired for stale links.
func (a *BudgetApproval) CheckReadable(now time.Time) error {
	if a.Expired(now) {
		return apperror.NewLinkExpired()
	}
	return nil
}

// CheckUsable fails with LinkExpired or AlreadyDecided.
func (a *BudgetApproval) CheckUsable(now time.Time) error {
	if err := a.CheckReadable(now); err != nil {
		return err
	}
	if a.Used {
		decision := ""
		if a.Decision != nil {
			decision = *a.Decision
		}
		return apperror.NewAlreadyDecided(decision)
	}
	return nil
}

// HashToken returns the stored form of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

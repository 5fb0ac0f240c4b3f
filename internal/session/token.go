package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNoSecret is returned when a Signer is built without a secret.
var ErrNoSecret = errors.New("token secret not configured")

// Signer issues and verifies tokens of the form "userID:signature", where
// signature is the hex HMAC-SHA256 of the user id.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer for the given secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) sign(userID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue returns a signed token for userID.
func (s *Signer) Issue(userID string) string {
	return userID + ":" + s.sign(userID)
}

// IssueNew generates a fresh user id and returns it with its token.
func (s *Signer) IssueNew() (userID, token string) {
	userID = uuid.NewString()
	return userID, s.Issue(userID)
}

// Verify checks a token and returns the user id it carries.
func (s *Signer) Verify(token string) (string, bool) {
	userID, sig, ok := strings.Cut(token, ":")
	if !ok || userID == "" {
		return "", false
	}
	if !hmac.Equal([]byte(s.sign(userID)), []byte(sig)) {
		return "", false
	}
	return userID, true
}

// Session verifies token and returns the matching Session, or None.
func (s *Signer) Session(token string) Session {
	if id, ok := s.Verify(token); ok {
		return Static(id)
	}
	return None
}

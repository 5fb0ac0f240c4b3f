package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/session"
)

func TestRequire(t *testing.T) {
	id, err := session.Require(session.Static("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	_, err = session.Require(session.None)
	assert.ErrorIs(t, err, model.ErrAuthentication)

	_, err = session.Require(session.Static(""))
	assert.ErrorIs(t, err, model.ErrAuthentication)

	_, err = session.Require(nil)
	assert.ErrorIs(t, err, model.ErrAuthentication)
}

func TestSigner(t *testing.T) {
	_, err := session.NewSigner("")
	assert.ErrorIs(t, err, session.ErrNoSecret)

	s, err := session.NewSigner("secret")
	require.NoError(t, err)

	token := s.Issue("user-1")
	id, ok := s.Verify(token)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no signature", "user-1"},
		{"tampered user", "user-2:" + token[len("user-1:"):]},
		{"bad signature", "user-1:deadbeef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.Verify(tt.token)
			assert.False(t, ok)
		})
	}

	other, err := session.NewSigner("other")
	require.NoError(t, err)
	_, ok = other.Verify(token)
	assert.False(t, ok, "token from another secret must not verify")
}

func TestSigner_IssueNewAndSession(t *testing.T) {
	s, err := session.NewSigner("secret")
	require.NoError(t, err)

	userID, token := s.IssueNew()
	assert.True(t, model.IsUUID(userID))

	got, err := session.Require(s.Session(token))
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = session.Require(s.Session("garbage"))
	assert.ErrorIs(t, err, model.ErrAuthentication)
}

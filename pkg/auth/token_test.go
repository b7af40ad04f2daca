package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	token, err := Issue(testSecret, "floorsync", "dash-1", "viewer", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := Verify(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "dash-1", claims.Subject)
	assert.Equal(t, "viewer", claims.Role)
}

func TestVerify_Rejects(t *testing.T) {
	expired, err := Issue(testSecret, "floorsync", "dash-1", "", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	other, err := Issue("another-secret-another-secret-xx", "floorsync", "dash-1", "", time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong secret", other, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(testSecret, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssue_EmptySecret(t *testing.T) {
	_, err := Issue("", "floorsync", "dash-1", "", time.Hour, time.Now())
	assert.Error(t, err)
}

func TestUsable(t *testing.T) {
	now := time.Now()
	valid, err := Issue(testSecret, "floorsync", "dash-1", "", time.Hour, now)
	require.NoError(t, err)
	expired, err := Issue(testSecret, "floorsync", "dash-1", "", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)

	assert.True(t, Usable(valid, now))
	assert.False(t, Usable(expired, now))
	assert.False(t, Usable("", now))
	assert.False(t, Usable("   ", now))
	assert.False(t, Usable("not-a-jwt", now))
}

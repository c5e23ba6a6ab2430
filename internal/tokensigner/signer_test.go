package tokensigner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/apperr"
)

func newTestSigner() *Signer {
	return New(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		StepUpTTL:     30 * time.Second,
	})
}

func TestIssueAndVerifyAccess(t *testing.T) {
	s := newTestSigner()
	tok, exp, err := s.IssueAccess("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, time.Second)

	claims, err := s.Verify(tok, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, TypeAccess, claims.Type)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	s := newTestSigner()
	tok, _, err := s.IssueAccess("user-1")
	require.NoError(t, err)

	_, err = s.Verify(tok, TypeRefresh)
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	s := newTestSigner()
	tok, _, err := s.IssueAccess("user-1")
	require.NoError(t, err)

	_, err = s.Verify(tok+"x", TypeAccess)
	require.Error(t, err)
}

func TestRefreshUsesDistinctSecret(t *testing.T) {
	s := newTestSigner()
	refreshTok, _, err := s.IssueRefresh("user-1", "jti-1")
	require.NoError(t, err)

	claims, err := s.Verify(refreshTok, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "jti-1", claims.JTI)

	_, err = s.Verify(refreshTok, TypeAccess)
	require.Error(t, err)
}

func TestIssueStepUpBindsChallenge(t *testing.T) {
	s := newTestSigner()
	tok, _, err := s.IssueStepUp("user-1", "transfer", "challenge-9")
	require.NoError(t, err)

	claims, err := s.Verify(tok, TypeStepUp)
	require.NoError(t, err)
	assert.Equal(t, "transfer", claims.Purpose)
	assert.Equal(t, "challenge-9", claims.ChallengeID)
}

func TestExtractBearer(t *testing.T) {
	cases := map[string]string{
		"Bearer abc123":  "abc123",
		"bearer abc123":  "abc123",
		"":                "",
		"Basic abc123":    "",
		"Bearer":          "",
		"Bearer  abc123":  "abc123",
	}
	for header, want := range cases {
		assert.Equal(t, want, ExtractBearer(header), "header=%q", header)
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("900")
	require.NoError(t, err)
	assert.Equal(t, 900*time.Second, d)

	d, err = ParseDuration("15m")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	_, err = ParseDuration("")
	require.Error(t, err)
}

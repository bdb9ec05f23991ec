package steamauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSteamGuardCode(t *testing.T) {
	const secret = "MTIzNDU2Nzg5MDEyMzQ1Njc4OTA="

	code, err := GenerateSteamGuardCode(secret, time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, "R87JJ", code)

	// same 30s window
	a, err := GenerateSteamGuardCode(secret, time.Unix(1700000010, 0))
	require.NoError(t, err)
	b, err := GenerateSteamGuardCode(secret, time.Unix(1700000039, 0))
	require.NoError(t, err)
	assert.Equal(t, "5MWGC", a)
	assert.Equal(t, a, b)
}

func TestGenerateSteamGuardCode_BadSecret(t *testing.T) {
	_, err := GenerateSteamGuardCode("not base64!", time.Now())
	assert.Error(t, err)
}

package qtrade_test

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrade-exchange/lpbot/internal/adapters/qtrade"
)

func TestNewAuth_ParsesCredential(t *testing.T) {
	auth, err := qtrade.NewAuth("256:vwj043jtrw4o5igw4oi5jwoi45g\n")
	require.NoError(t, err)
	assert.Equal(t, "256", auth.KeyID())
}

func TestNewAuth_RejectsMalformed(t *testing.T) {
	for _, cred := range []string{"", "justakey", ":secret", "1:"} {
		_, err := qtrade.NewAuth(cred)
		assert.Error(t, err, "credential %q", cred)
	}
}

func TestLoadAuth_EnvOverridesKeyfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpbot_hmac.txt")
	require.NoError(t, os.WriteFile(path, []byte("1:filesecret\n"), 0o600))

	t.Setenv(qtrade.EnvHMACKey, "2:envsecret")
	auth, err := qtrade.LoadAuth(path)
	require.NoError(t, err)
	assert.Equal(t, "2", auth.KeyID())

	t.Setenv(qtrade.EnvHMACKey, "")
	auth, err = qtrade.LoadAuth(path)
	require.NoError(t, err)
	assert.Equal(t, "1", auth.KeyID())
}

func TestSign_SetsHeaders(t *testing.T) {
	auth, err := qtrade.NewAuth("1:secret")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://api.qtrade.io/v1/user/balances_all", nil)
	require.NoError(t, err)
	auth.Sign(req, nil)

	assert.NotEmpty(t, req.Header.Get("HMAC-Timestamp"))
	authz := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(authz, "HMAC-SHA256 1:"), authz)

	// same request signed twice in the same second yields the same signature
	req2, _ := http.NewRequest(http.MethodGet, "https://api.qtrade.io/v1/user/balances_all", nil)
	auth.Sign(req2, nil)
	if req.Header.Get("HMAC-Timestamp") == req2.Header.Get("HMAC-Timestamp") {
		assert.Equal(t, authz, req2.Header.Get("Authorization"))
	}
}

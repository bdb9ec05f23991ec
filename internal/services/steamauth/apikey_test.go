package steamauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAPIKey_ConfiguredKeyIsAuthoritative(t *testing.T) {
	f := newFakeSteam(t)
	cfg := f.config(t)
	cfg.WebAPIKey = "CONFIGUREDKEY"
	c, err := NewClient(cfg)
	require.NoError(t, err)

	state, err := c.EnsureAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CONFIGUREDKEY", state.Value)
	assert.True(t, state.Provisioned)
	assert.Equal(t, 0, f.apiKeyHits)
}

func TestEnsureAPIKey(t *testing.T) {
	tests := []struct {
		name          string
		domain        string
		page          string
		afterRegister string
		wantKey       string
		wantHits      int
		wantRegisters int
	}{
		{
			name:     "existing key",
			page:     "<p>Key: ABCDEF0123456789ABCDEF0123456789</p>",
			wantKey:  "ABCDEF0123456789ABCDEF0123456789",
			wantHits: 1,
		},
		{
			name:     "access denied",
			domain:   "example.com",
			page:     "<h2>Access Denied</h2>",
			wantHits: 1,
		},
		{
			name:     "no key without domain",
			page:     "<p>Register for a new Steam Web API Key</p>",
			wantHits: 1,
		},
		{
			name:          "registration never yields a key",
			domain:        "example.com",
			page:          "<p>Register for a new Steam Web API Key</p>",
			wantHits:      3,
			wantRegisters: 2,
		},
		{
			name:          "registration succeeds",
			domain:        "example.com",
			page:          "<p>Register for a new Steam Web API Key</p>",
			afterRegister: "<p>Domain Name: example.com</p><p>Key: 11112222333344445555666677778888</p>",
			wantKey:       "11112222333344445555666677778888",
			wantHits:      2,
			wantRegisters: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSteam(t)
			c := loggedInClient(t, f)
			f.mu.Lock()
			f.apiKeyPage = tt.page
			f.apiKeyAfterReg = tt.afterRegister
			f.apiKeyHits = 0
			f.mu.Unlock()
			c.SetAPIKeyDomain(tt.domain)

			state, err := c.EnsureAPIKey(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, state.Value)
			assert.Equal(t, tt.domain, state.Domain)
			assert.True(t, state.Provisioned)
			assert.Equal(t, tt.wantHits, f.apiKeyHits)
			assert.Len(t, f.registerForms, tt.wantRegisters)
			assert.Equal(t, state, c.APIKey())

			for _, form := range f.registerForms {
				assert.Equal(t, tt.domain, form.Get("domain"))
				assert.Equal(t, "agreed", form.Get("agreeToTerms"))
				assert.Equal(t, c.Session().SessionID, form.Get("sessionid"))
			}
		})
	}
}

func TestLogin_ProvisionsKeyOnce(t *testing.T) {
	f := newFakeSteam(t)
	f.apiKeyPage = "<p>nothing here</p>"
	cfg := f.config(t)
	cfg.APIKeyDomain = "example.com"
	f.reply(loginReply{body: successReply, grant: true})
	c, err := NewClient(cfg)
	require.NoError(t, err)

	res, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, res.Code)
	assert.Equal(t, 3, f.apiKeyHits)
	assert.Equal(t, "", c.APIKey().Value)
	assert.True(t, c.APIKey().Provisioned)
}

func TestAPIKey_UnprovisionedBeforeLogin(t *testing.T) {
	f := newFakeSteam(t)
	c := f.newClient(t)

	assert.Equal(t, APIKeyState{}, c.APIKey())
	assert.Equal(t, 0, f.apiKeyHits)
}

package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer secret-token", "secret-token", false},
		{"valid with padding", "Bearer   secret-token  ", "secret-token", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"empty token", "Bearer ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/actions", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, err := ExtractBearerToken(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestAuthenticateLegacyKey(t *testing.T) {
	p, ok := Authenticate("legacy-key", "legacy-key", nil)
	require.True(t, ok)
	assert.Equal(t, DefaultTenant, p.Tenant)
	assert.Contains(t, p.Scopes, "*")
}

func TestAuthenticateScopedTokens(t *testing.T) {
	tokens := []TokenConfig{
		{Token: "token-a", Tenant: "team-a", Scopes: []string{"actions:execute"}},
		{Token: "token-b", Tenant: "team-b", Scopes: []string{"audit:ro"}},
		{Token: "token-c", Scopes: []string{"events:ro"}},
	}

	t.Run("execute implies reads", func(t *testing.T) {
		p, ok := Authenticate("token-a", "", tokens)
		require.True(t, ok)
		assert.Equal(t, "team-a", p.Tenant)
		assert.Contains(t, p.Scopes, "actions:execute")
		assert.Contains(t, p.Scopes, "events:ro")
		assert.Contains(t, p.Scopes, "agents:ro")
		assert.NotContains(t, p.Scopes, "audit:ro")
	})

	t.Run("read-only stays read-only", func(t *testing.T) {
		p, ok := Authenticate("token-b", "", tokens)
		require.True(t, ok)
		assert.Equal(t, "team-b", p.Tenant)
		assert.Equal(t, map[string]struct{}{"audit:ro": {}}, p.Scopes)
	})

	t.Run("missing tenant falls back to default", func(t *testing.T) {
		p, ok := Authenticate("token-c", "", tokens)
		require.True(t, ok)
		assert.Equal(t, DefaultTenant, p.Tenant)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		_, ok := Authenticate("token-x", "", tokens)
		assert.False(t, ok)
	})

	t.Run("empty presented token rejected", func(t *testing.T) {
		_, ok := Authenticate("", "", tokens)
		assert.False(t, ok)
	})

	t.Run("empty config never matches empty token", func(t *testing.T) {
		_, ok := Authenticate("", "", nil)
		assert.False(t, ok)
	})
}

func TestHasAnyScope(t *testing.T) {
	p := Principal{Scopes: map[string]struct{}{"audit:ro": {}}}

	assert.True(t, HasAnyScope(p, "audit:ro"))
	assert.True(t, HasAnyScope(p, "actions:execute", "audit:ro"))
	assert.False(t, HasAnyScope(p, "actions:execute"))
	assert.True(t, HasAnyScope(p), "no required scopes means allowed")

	wildcard := Principal{Scopes: map[string]struct{}{"*": {}}}
	assert.True(t, HasAnyScope(wildcard, "anything:at:all"))
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{Tenant: "team-a", Scopes: map[string]struct{}{"*": {}}}

	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = PrincipalFromContext(context.Background())
	assert.False(t, ok)
}

package auth

import (
	"testing"

	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		token    string
		scope    string
		clean    string
		hasGrant bool
	}{
		{
			name:     "implicit grant fragment",
			raw:      "http://localhost:8080/#access_token=abc&scope=user%3Aread%3Aemail+user%3Aread%3Afollows&token_type=bearer",
			token:    "abc",
			scope:    "user:read:email user:read:follows",
			clean:    "http://localhost:8080/",
			hasGrant: true,
		},
		{
			name:  "no fragment",
			raw:   "http://localhost:8080/",
			clean: "http://localhost:8080/",
		},
		{
			name:  "token without scope",
			raw:   "http://localhost:8080/#access_token=abc",
			token: "abc",
			clean: "http://localhost:8080/",
		},
		{
			name:  "error fragment",
			raw:   "http://localhost:8080/#error=access_denied&error_description=The+user+denied+you+access",
			clean: "http://localhost:8080/",
		},
		{
			name:     "query is preserved",
			raw:      "https://viewer.example.com/watch?x=1#access_token=t&scope=s",
			token:    "t",
			scope:    "s",
			clean:    "https://viewer.example.com/watch?x=1",
			hasGrant: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRedirect(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.token, r.Token)
			assert.Equal(t, tt.scope, r.Scope)
			assert.Equal(t, tt.clean, r.CleanURL)
			assert.Equal(t, tt.hasGrant, r.HasGrant())
		})
	}
}

func TestParseRedirect_InvalidURL(t *testing.T) {
	_, err := ParseRedirect("http://[::1")
	assert.ErrorIs(t, err, domain.ErrInvalidRedirect)
}

package auth

import (
	"fmt"
	"net/url"

	"github.com/pscheid92/streamhub/internal/domain"
)

// Redirect is what the page URL carried back from the authorization server.
type Redirect struct {
	Token    string
	Scope    string
	CleanURL string
}

// HasGrant reports whether the fragment carried both an access token and a scope.
func (r Redirect) HasGrant() bool {
	return r.Token != "" && r.Scope != ""
}

// ParseRedirect extracts the implicit-grant parameters from the fragment of rawURL.
// CleanURL is rawURL without its fragment, suitable for replacing the browser history entry.
func ParseRedirect(rawURL string) (Redirect, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Redirect{}, fmt.Errorf("%w: %w", domain.ErrInvalidRedirect, err)
	}

	// Malformed pairs are skipped; ParseQuery still returns the well-formed ones.
	params, _ := url.ParseQuery(u.EscapedFragment())

	u.Fragment = ""
	u.RawFragment = ""

	return Redirect{
		Token:    params.Get("access_token"),
		Scope:    params.Get("scope"),
		CleanURL: u.String(),
	}, nil
}

// Package source validates repository locators and acquires working trees.
package source

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Terminal acquisition errors. None are retried at this layer.
var (
	ErrInvalidSource = errors.New("invalid repository source")
	ErrNotFound      = errors.New("repository not found")
	ErrTimeout       = errors.New("acquisition timed out")
	ErrSizeExceeded  = errors.New("repository size limit exceeded")
)

// allowedHosts are the supported public hosting providers.
var allowedHosts = map[string]bool{
	"github.com":        true,
	"www.github.com":    true,
	"gitlab.com":        true,
	"bitbucket.org":     true,
	"codeberg.org":      true,
}

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Repository identifies an input repository. Immutable once validated.
type Repository struct {
	URL   string // canonical https clone URL, .git suffix included
	Owner string
	Name  string
	Ref   string // optional branch or tag
	Token string // optional access credential, never logged
}

// Parse validates a repository locator against the hosting allow-list and
// returns its canonical form. Local paths and non-HTTP(S) schemes are
// rejected with ErrInvalidSource.
func Parse(raw string) (*Repository, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidSource)
	}

	// Bare "github.com/owner/repo" is accepted; anything scheme-less that
	// looks like a filesystem path is not.
	if !strings.Contains(raw, "://") {
		if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, ".") || strings.HasPrefix(raw, "~") {
			return nil, fmt.Errorf("%w: local paths are not supported", ErrInvalidSource)
		}
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidSource, u.Scheme)
	}

	host := strings.ToLower(u.Host)
	if !allowedHosts[host] {
		return nil, fmt.Errorf("%w: host %q is not a supported hosting provider", ErrInvalidSource, u.Host)
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected %s/owner/repo", ErrInvalidSource, host)
	}

	owner, name := parts[0], strings.TrimSuffix(parts[1], ".git")
	if !nameRe.MatchString(owner) {
		return nil, fmt.Errorf("%w: invalid owner name %q", ErrInvalidSource, owner)
	}
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid repository name %q", ErrInvalidSource, name)
	}

	if host == "www.github.com" {
		host = "github.com"
	}

	return &Repository{
		URL:   fmt.Sprintf("https://%s/%s/%s.git", host, owner, name),
		Owner: owner,
		Name:  name,
	}, nil
}

// FullName returns "owner/name".
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// cloneURL returns the URL with the access token embedded, if any.
func (r *Repository) cloneURL() string {
	if r.Token == "" {
		return r.URL
	}
	return strings.Replace(r.URL, "https://", "https://"+r.Token+"@", 1)
}

// Package git provides the repository lookup used to default --repo.
package git

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/runoshun/issue-tally/internal/domain"
)

// Ensure Client implements domain.RepoDetector.
var _ domain.RepoDetector = (*Client)(nil)

// RemoteName is the remote inspected by DetectRepo.
const RemoteName = "origin"

// Client reads repository metadata with go-git.
type Client struct {
	dir string // Directory inside the working tree
}

// NewClient creates a new git client for dir.
// The repository is opened on demand, so dir need not be a checkout.
func NewClient(dir string) *Client {
	return &Client{dir: dir}
}

// DetectRepo returns the owner/name of the GitHub repository the origin
// remote of the enclosing checkout points to.
func (c *Client) DetectRepo() (string, error) {
	repo, err := git.PlainOpenWithOptions(c.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", domain.ErrNotGitRepository
		}
		return "", fmt.Errorf("open git repository: %w", err)
	}

	remote, err := repo.Remote(RemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", fmt.Errorf("%w: no %s remote", domain.ErrNoGitHubRemote, RemoteName)
		}
		return "", fmt.Errorf("read %s remote: %w", RemoteName, err)
	}

	for _, u := range remote.Config().URLs {
		if slug, err := ParseGitHubURL(u); err == nil {
			return slug, nil
		}
	}
	return "", domain.ErrNoGitHubRemote
}

// ParseGitHubURL extracts owner/name from a github.com remote URL.
// It accepts https, ssh and scp-like (git@github.com:owner/name.git) forms.
func ParseGitHubURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	var host, path string
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		host, path = u.Hostname(), u.Path
	} else if at, colon := strings.Index(raw, "@"), strings.Index(raw, ":"); colon > at && at >= 0 {
		host, path = raw[at+1:colon], raw[colon+1:]
	} else {
		return "", fmt.Errorf("%w: %q", domain.ErrNoGitHubRemote, raw)
	}

	if !strings.EqualFold(host, "github.com") {
		return "", fmt.Errorf("%w: %q", domain.ErrNoGitHubRemote, raw)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrNoGitHubRemote, raw)
	}
	return parts[0] + "/" + parts[1], nil
}

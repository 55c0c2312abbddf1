package domain

import "errors"

// Domain errors.
var (
	ErrMissingToken        = errors.New("GITHUB_TOKEN needs to be set before running (or pass --token)")
	ErrInvalidRepo         = errors.New("repository must be in the form <owner>/<name>")
	ErrInvalidLabel        = errors.New("invalid label")
	ErrNoFilter            = errors.New("either a label or a since date is required")
	ErrFilterConflict      = errors.New("label and since date cannot be used together")
	ErrInvalidMode         = errors.New("invalid report mode")
	ErrInvalidFormat       = errors.New("invalid report format")
	ErrMalformedResponse   = errors.New("malformed GraphQL response")
	ErrCursorNotAdvancing  = errors.New("search cursor did not advance")
	ErrAggregatorFinalized = errors.New("aggregator already finalized")
	ErrConfigExists        = errors.New("config file already exists")
	ErrNotGitRepository    = errors.New("not a git repository (or any of the parent directories)")
	ErrNoGitHubRemote      = errors.New("origin remote does not point to github.com")
)

package domain

import "strings"

// DefaultTokenEnv is the environment variable read when no flag is given.
const DefaultTokenEnv = "GITHUB_TOKEN"

// TokenSource identifies where an access token came from.
type TokenSource string

// Token sources in precedence order, highest first.
const (
	TokenSourceFlag TokenSource = "flag"
	TokenSourceEnv  TokenSource = "env"
)

// TokenRequest lists the candidate values for the access token.
type TokenRequest struct {
	Flag    string                  // Value of --token
	EnvName string                  // Variable to read; DefaultTokenEnv when empty
	Getenv  func(key string) string // Environment lookup, usually os.Getenv
}

// ResolvedToken is an access token and its origin.
type ResolvedToken struct {
	Value  string
	Source TokenSource
}

// ResolveToken picks the token from the flag, then from the environment.
// Surrounding whitespace is ignored. It returns ErrMissingToken when no
// source yields a value.
func ResolveToken(req TokenRequest) (ResolvedToken, error) {
	if v := strings.TrimSpace(req.Flag); v != "" {
		return ResolvedToken{Value: v, Source: TokenSourceFlag}, nil
	}
	name := req.EnvName
	if name == "" {
		name = DefaultTokenEnv
	}
	if req.Getenv != nil {
		if v := strings.TrimSpace(req.Getenv(name)); v != "" {
			return ResolvedToken{Value: v, Source: TokenSourceEnv}, nil
		}
	}
	return ResolvedToken{}, ErrMissingToken
}

package domain

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
	"unicode"
)

// PageSize is the number of issues, assignees and timeline items requested per page.
const PageSize = 100

// DateLayout is the layout of since dates on the command line and in search qualifiers.
const DateLayout = "2006-01-02"

// maxLabelLength matches the longest label name GitHub accepts.
const maxLabelLength = 50

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?/[A-Za-z0-9._-]+$`)

// Cursor is a position in a search result set.
// The zero value is the start of results.
type Cursor struct {
	value string
	set   bool
}

// StartCursor returns the cursor for the first page.
func StartCursor() Cursor {
	return Cursor{}
}

// NewCursor returns a cursor continuing after endCursor.
func NewCursor(endCursor string) Cursor {
	return Cursor{value: endCursor, set: true}
}

// IsStart reports whether c is the start-of-results sentinel.
func (c Cursor) IsStart() bool {
	return !c.set
}

// Value returns the opaque token, empty for the start cursor.
func (c Cursor) Value() string {
	return c.value
}

// Literal renders the cursor as a GraphQL value: the bare null literal
// for the start of results, a quoted string otherwise.
func (c Cursor) Literal() string {
	if !c.set {
		return "null"
	}
	return QuoteString(c.value)
}

// String implements fmt.Stringer.
func (c Cursor) String() string {
	return c.Literal()
}

// SearchFilter selects the issues of a search.
// Exactly one of Label and Since is set.
type SearchFilter struct {
	Since time.Time
	Repo  string // <owner>/<name>
	Label string
}

// HasLabel reports whether the filter selects by label.
func (f SearchFilter) HasLabel() bool {
	return f.Label != ""
}

// Validate checks the filter can be rendered into a search query safely.
func (f SearchFilter) Validate() error {
	if !repoPattern.MatchString(f.Repo) {
		return fmt.Errorf("%w: %q", ErrInvalidRepo, f.Repo)
	}
	switch {
	case f.Label == "" && f.Since.IsZero():
		return ErrNoFilter
	case f.Label != "" && !f.Since.IsZero():
		return ErrFilterConflict
	case f.Label != "":
		return validateLabel(f.Label)
	}
	return nil
}

func validateLabel(label string) error {
	if len(label) > maxLabelLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidLabel, maxLabelLength)
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: blank", ErrInvalidLabel)
	}
	for _, r := range label {
		if r == '"' {
			return fmt.Errorf("%w: %q contains a double quote", ErrInvalidLabel, label)
		}
		if r == '\\' {
			return fmt.Errorf("%w: %q contains a backslash", ErrInvalidLabel, label)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidLabel, label)
		}
	}
	return nil
}

// SearchString renders the filter in GitHub search syntax.
// The filter must be valid.
func (f SearchFilter) SearchString() string {
	var b strings.Builder
	b.WriteString("repo:")
	b.WriteString(f.Repo)
	b.WriteString(" is:issue")
	if f.Label != "" {
		b.WriteString(` label:"`)
		b.WriteString(f.Label)
		b.WriteString(`"`)
	} else {
		b.WriteString(" created:>=")
		b.WriteString(f.Since.Format(DateLayout))
	}
	return b.String()
}

// ParseSince parses a YYYY-MM-DD date.
func ParseSince(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// QuoteString renders s as a GraphQL string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

const searchQueryTemplate = `{
  search(first: {{.PageSize}}, after: {{.After}}, query: {{.Query}}, type: ISSUE) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ... on Issue {
        id
        number
        createdAt
        closed
        assignees(first: {{.PageSize}}) {
          nodes {
            login
          }
        }
        author {
          login
        }
{{- if .Timeline}}
        timelineItems(first: {{.PageSize}}, itemTypes: [CROSS_REFERENCED_EVENT]) {
          totalCount
          nodes {
            ... on CrossReferencedEvent {
              isCrossRepository
              source {
                __typename
                ... on PullRequest {
                  url
                  merged
                }
                ... on Issue {
                  url
                  closed
                }
              }
            }
          }
        }
{{- end}}
      }
    }
  }
}
`

var searchQuery = template.Must(template.New("search").Parse(searchQueryTemplate))

type searchQueryData struct {
	After    string
	Query    string
	PageSize int
	Timeline bool
}

// BuildSearchQuery renders the search document for one page.
// Every interpolated value is either validated or a quoted literal.
func BuildSearchQuery(cursor Cursor, filter SearchFilter) (string, error) {
	if err := filter.Validate(); err != nil {
		return "", err
	}
	data := searchQueryData{
		After:    cursor.Literal(),
		Query:    QuoteString(filter.SearchString()),
		PageSize: PageSize,
		Timeline: filter.HasLabel(),
	}
	var buf bytes.Buffer
	if err := searchQuery.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render search query: %w", err)
	}
	return buf.String(), nil
}

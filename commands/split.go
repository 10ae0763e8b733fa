package commands

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnclosedQuote       = errors.New("unclosed quote")
	ErrTooManyApplications = errors.New("too many applications for a non-inline dialplan")
	ErrOriginateSyntax     = errors.New("invalid originate syntax")
)

// Split tokenises line on sep, ignoring separators inside single quotes or
// escaped with a backslash. Tokens are trimmed and empty ones dropped.
func Split(line, sep string) ([]string, error) {
	var (
		tokens  []string
		token   strings.Builder
		inQuote bool
	)

	for i := 0; i < len(line); {
		if !inQuote && strings.HasPrefix(line[i:], sep) && !escapedAt(line, i) {
			// adjacent separators yield no empty token
			if t := strings.TrimSpace(token.String()); t != "" {
				tokens = append(tokens, t)
			}
			token.Reset()
			i += len(sep)
			continue
		}

		c := line[i]
		if c == '\'' && !escapedAt(line, i) {
			inQuote = !inQuote
		}

		token.WriteByte(c)
		i++
	}

	if inQuote {
		return nil, fmt.Errorf("%w at %q", ErrUnclosedQuote, token.String())
	}

	if last := strings.TrimSpace(token.String()); last != "" {
		tokens = append(tokens, last)
	}

	return tokens, nil
}

func escapedAt(s string, i int) bool {
	return i > 0 && s[i-1] == '\\'
}

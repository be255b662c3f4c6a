package profile

import (
	"regexp"
	"strings"

	"github.com/google/shlex"
)

var (
	backslashBeforeNewline = regexp.MustCompile(`\\\s*\n`)
	backslashBeforeSpace   = regexp.MustCompile(`\\[ \t]+`)
)

// tokenizeExtraArgs sanitizes a free-form extra-arguments string the way an
// administrator typing into a UI text box would expect: shell-style line
// continuations collapse to a space, but a backslash immediately before a
// colon survives so filter-graph escapes like `timecode='00\:00\:00\:00'`
// still parse as one token.
func tokenizeExtraArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = backslashBeforeNewline.ReplaceAllString(s, " ")
	s = backslashBeforeSpace.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		t := strings.TrimSpace(tok)
		if t == "" || t == `\` {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

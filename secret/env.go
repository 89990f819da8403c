package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnv substitutes environment variables in s.
//
// ${NAME} must be set; every unset braced name is reported in one error.
// $NAME expands to "" when unset. $$ is a literal dollar sign. A $ that does
// not start a name is kept as is.
func ExpandEnv(s string) (string, error) {
	return expandWith(s, os.LookupEnv)
}

func expandWith(s string, lookup func(string) (string, bool)) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var (
		b       strings.Builder
		missing []string
	)
	b.Grow(len(s))
	for {
		i := strings.IndexByte(s, '$')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i+1:]

		switch {
		case strings.HasPrefix(s, "$"):
			b.WriteByte('$')
			s = s[1:]
		case strings.HasPrefix(s, "{"):
			end := strings.IndexByte(s, '}')
			if end < 0 || !isName(s[1:end]) {
				b.WriteByte('$')
				continue
			}
			name := s[1:end]
			s = s[end+1:]
			v, ok := lookup(name)
			if !ok {
				missing = append(missing, name)
				continue
			}
			b.WriteString(v)
		default:
			n := nameLen(s)
			if n == 0 {
				b.WriteByte('$')
				continue
			}
			v, _ := lookup(s[:n])
			b.WriteString(v)
			s = s[n:]
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		missing = slices.Compact(missing)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return b.String(), nil
}

func isName(s string) bool {
	return s != "" && nameLen(s) == len(s)
}

// nameLen is the length of the variable name at the start of s.
func nameLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return i
		}
	}
	return len(s)
}

package actions

import (
	"regexp"
	"strings"
)

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_-]+`)
)

// Slugify lowercases title, drops punctuation and joins words with "-".
// Letters outside ASCII are kept.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparate.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

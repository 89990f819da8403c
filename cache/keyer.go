package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key is an ordered list of segments identifying a query shape and its
// parameters, e.g. ["posts", "published-true", "limit-10", "offset-0"].
type Key []string

// segmentEscaper keeps ":" inside a segment from reading as a separator.
var segmentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// String joins the escaped segments with ":", so distinct keys never share a
// string. Keys longer than MaxKeyLength keep their first segment and replace
// the rest with a SHA-256 prefix.
func (k Key) String() string {
	segs := make([]string, len(k))
	for i, seg := range k {
		segs[i] = segmentEscaper.Replace(seg)
	}
	s := strings.Join(segs, ":")
	if len(s) <= MaxKeyLength {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	prefix := ""
	if len(segs) > 0 && len(segs[0]) < MaxKeyLength-40 {
		prefix = segs[0] + ":"
	}
	return prefix + "h-" + hex.EncodeToString(sum[:16])
}

// Name returns the first segment, used to label metrics and spans.
func (k Key) Name() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

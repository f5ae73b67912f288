package index

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const separator = '_'

// Normalize maps an entity name onto the key alphabet [A-Za-z0-9_-]. Runs of
// whitespace collapse to a single separator and any other foreign rune
// becomes '-', so every key written is rediscovered by Rebuild.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	inSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteRune(separator)
			}
			inSpace = true
			continue
		}
		inSpace = false
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// Key derives the storage key for an entity: <normalized-name>_<id>.<ext>.
func Key(name string, id int, ext string) string {
	return Normalize(name) + string(separator) + strconv.Itoa(id) + "." + ext
}

// Pattern returns the expression matched by keys Key produces for ext.
func Pattern(ext string) *regexp.Regexp {
	return regexp.MustCompile(`^[A-Za-z0-9_\-]*_(\d+)\.` + regexp.QuoteMeta(ext) + `$`)
}

// ParseKey extracts the id from a key produced by Key. ok is false for keys
// that do not follow the naming scheme.
func ParseKey(key, ext string) (id int, ok bool) {
	return parseWith(Pattern(ext), key)
}

func parseWith(re *regexp.Regexp, key string) (int, bool) {
	m := re.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

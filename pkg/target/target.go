package target

import "strings"

// NotProvided is substituted when sanitizing leaves an empty source
// name, so the header field is never blank.
const NotProvided = "NOT_PROVIDED"

// maxNameLen bounds SRC_NAME to the fixed-width header field.
const maxNameLen = 16

// punctuation is the character set replaced by underscores in source
// names. "-" and "+" are not in the set; they carry sign information
// in catalog names like J0918-1205.
const punctuation = "!\"#$%&'()*,./:;<=>?@[\\]^_`{|}~"

// delimiters mark the boundary between the source name and the
// coordinate fields, tried in priority order.
var delimiters = []string{"radec target,", "radec,"}

// Format splits a raw target description into the sanitized source
// name, the RA string, and the Dec string. Coordinates come back empty
// when the string carries no radec tag. Format is idempotent on its
// own name output.
func Format(raw string) (name, ra, dec string) {
	prefix := raw
	var suffix string
	for _, delim := range delimiters {
		if i := strings.Index(raw, delim); i >= 0 {
			prefix, suffix = raw[:i], raw[i+len(delim):]
			break
		}
	}

	name = sanitizeName(prefix)

	if suffix != "" {
		fields := strings.SplitN(suffix, ",", 3)
		ra = strings.TrimSpace(fields[0])
		if len(fields) > 1 {
			dec = strings.TrimSpace(fields[1])
		}
	}
	return name, ra, dec
}

// sanitizeName reduces the name portion of a target string to a
// header-safe token: first alias only, punctuation replaced by
// underscores, at most maxNameLen characters.
func sanitizeName(s string) string {
	if i := strings.Index(s, "|"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	name := b.String()

	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	if name == "" {
		return NotProvided
	}
	return name
}

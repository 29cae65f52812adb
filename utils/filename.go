package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxFilenameLen = 255

var filenameStripRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// baseName returns the last path component, treating both / and \ as separators.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Extension returns the lower-cased extension of the client-supplied name
// without the dot, or "" when there is none.
func Extension(name string) string {
	base := baseName(name)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// SecureFilename reduces a client-supplied filename to a safe display name:
// directories are dropped, unicode is folded to ASCII, whitespace becomes
// underscores and anything outside [A-Za-z0-9_.-] is removed. The result keeps
// the extension ext so the name still tells the user what they uploaded.
func SecureFilename(name, ext string) string {
	s := norm.NFKD.String(baseName(name))
	s = strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), "_")
	s = filenameStripRe.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	if ext != "" && !strings.HasSuffix(strings.ToLower(s), "."+ext) {
		if s == "" || strings.EqualFold(s, ext) {
			s = "upload"
		}
		s += "." + ext
	}
	if len(s) > maxFilenameLen {
		suffix := ""
		if ext != "" {
			suffix = s[len(s)-len(ext)-1:]
		}
		s = s[:maxFilenameLen-len(suffix)] + suffix
	}
	return s
}

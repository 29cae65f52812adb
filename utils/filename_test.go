package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"a.pdf":           "pdf",
		"A.PDF":           "pdf",
		"archive.tar.gz":  "gz",
		"noext":           "",
		"trailingdot.":    "",
		"dir.v2/file":     "",
		`C:\docs\x.Docx`:  "docx",
		"../../etc/x.exe": "exe",
	}
	for in, want := range cases {
		assert.Equal(t, want, Extension(in), in)
	}
}

func TestSecureFilename(t *testing.T) {
	cases := []struct {
		in, ext, want string
	}{
		{"a.pdf", "pdf", "a.pdf"},
		{"My Report (final).PDF", "pdf", "My_Report_final.PDF"},
		{"../../etc/passwd.txt", "txt", "passwd.txt"},
		{`C:\Users\me\notes.txt`, "txt", "notes.txt"},
		{"résumé.docx", "docx", "resume.docx"},
		{"日本.pdf", "pdf", "upload.pdf"},
		{"..pdf", "pdf", "upload.pdf"},
		{"__init__.csv", "csv", "init__.csv"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SecureFilename(tc.in, tc.ext), tc.in)
	}
}

func TestSecureFilenameTruncatesButKeepsExtension(t *testing.T) {
	got := SecureFilename(strings.Repeat("x", 400)+".zip", "zip")
	assert.Len(t, got, maxFilenameLen)
	assert.True(t, strings.HasSuffix(got, ".zip"))
}

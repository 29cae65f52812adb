package views

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identity struct {
	ID          uint
	DisplayName string
}

type file struct {
	ID           uint
	OriginalName string
	SizeBytes    int64
	UploadedAt   time.Time
}

func TestTemplatesRender(t *testing.T) {
	tpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "dashboard.html", "login.html", "register.html", "files.html", "403.html", "404.html", "500.html", "error.html"} {
		assert.NotNil(t, tpl.Lookup(name), name)
	}

	var buf bytes.Buffer
	err = tpl.ExecuteTemplate(&buf, "files.html", map[string]any{
		"Identity": identity{ID: 1, DisplayName: "Alice"},
		"CSRF":     "tok123",
		"Allowed":  []string{"pdf", "txt"},
		"MaxBytes": int64(16 << 20),
		"Files": []file{
			{ID: 9, OriginalName: "<script>.txt", SizeBytes: 2048, UploadedAt: time.Now()},
		},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `value="tok123"`)
	assert.Contains(t, out, "/files/download/9")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "&lt;script&gt;.txt")
	assert.Contains(t, out, "Alice")
}

func TestErrorPageWithoutSession(t *testing.T) {
	tpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tpl.ExecuteTemplate(&buf, "404.html", map[string]any{"Status": 404, "Message": "file not found"}))
	assert.Contains(t, buf.String(), "file not found")
	assert.Contains(t, buf.String(), "/login")
}

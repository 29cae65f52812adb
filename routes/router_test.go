package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/filebox/config"
	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/storage"
)

type testApp struct {
	srv       *httptest.Server
	uploadDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	root := t.TempDir()
	cfg := config.AppConfig{
		SecretKey:           "test-secret",
		SessionTTLHours:     1,
		CookieName:          "filebox_session",
		DBDriver:            "sqlite",
		DatabaseURI:         "sqlite:" + filepath.Join(root, "app.db"),
		UploadDir:           filepath.Join(root, "uploads"),
		MaxUploadMB:         1,
		AllowedExtensions:   config.DefaultAllowedExtensions,
		AllowedOrigins:      []string{"*"},
		GinMode:             "test",
		LogLevel:            "silent",
		LoginFailMaxPerHour: 100,
		LoginLockMinutes:    1,
	}
	db, err := config.OpenDatabase(cfg, models.All()...)
	require.NoError(t, err)
	blobs, err := storage.NewDiskStore(cfg.UploadDir)
	require.NoError(t, err)

	r, err := SetupRouter(cfg, db, blobs)
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testApp{srv: srv, uploadDir: cfg.UploadDir}
}

func (a *testApp) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	return len(entries)
}

// browser keeps cookies between requests and does not follow redirects.
type browser struct {
	t    *testing.T
	app  *testApp
	jar  *cookiejar.Jar
	http *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	b := &browser{t: t, app: a, jar: jar, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
	b.get("/").Body.Close()
	return b
}

func (b *browser) cookie(name string) string {
	u, _ := url.Parse(b.app.srv.URL)
	for _, c := range b.jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	resp, err := b.http.Do(req)
	require.NoError(b.t, err)
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) getJSON(path string, out interface{}) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	require.NoError(b.t, err)
	req.Header.Set("Accept", "application/json")
	resp := b.do(req)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (b *browser) page(path string) string {
	b.t.Helper()
	resp := b.get(path)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return string(body)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", b.cookie("filebox_csrf"))
	}
	req, err := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(filename, content string) *http.Response {
	b.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(b.t, w.WriteField("csrf_token", b.cookie("filebox_csrf")))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(b.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, b.app.srv.URL+"/files/upload", &buf)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *browser) register(email, name string) {
	b.t.Helper()
	resp := b.post("/register", url.Values{"email": {email}, "name": {name}, "password": {"correct-horse"}})
	resp.Body.Close()
	require.Equal(b.t, http.StatusFound, resp.StatusCode)
	require.Equal(b.t, "/dashboard", resp.Header.Get("Location"))
}

type fileItem struct {
	ID           uint   `json:"id"`
	OriginalName string `json:"original_name"`
	SizeBytes    int64  `json:"size_bytes"`
}

func (b *browser) files() []fileItem {
	b.t.Helper()
	var out struct {
		Code int `json:"code"`
		Data struct {
			Items []fileItem `json:"items"`
		} `json:"data"`
	}
	resp := b.getJSON("/files", &out)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	return out.Data.Items
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, err := http.Get(app.srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"status":"ok"}}`, readAll(t, resp))
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	for _, path := range []string{"/dashboard", "/files", "/files/download/1", "/logout"} {
		resp := b.get(path)
		resp.Body.Close()
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	assert.Contains(t, b.page("/login"), "Please log in to access this page.")

	resp := b.getJSON("/files", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.register("alice@example.com", "Alice")
	assert.Contains(t, alice.page("/dashboard"), "Welcome, Alice")

	session := alice.cookie("filebox_session")
	require.NotEmpty(t, session)

	resp := alice.get("/logout")
	resp.Body.Close()
	assert.Equal(t, "/", resp.Header.Get("Location"))

	// the revoked token must not work even if replayed
	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/dashboard", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "filebox_session", Value: session})
	resp, err = (&http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	again := app.browser(t)
	resp = again.post("/login", url.Values{"email": {"ALICE@example.com"}, "password": {"correct-horse"}})
	resp.Body.Close()
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestDuplicateRegistrationGoesToLogin(t *testing.T) {
	app := newTestApp(t)
	app.browser(t).register("bob@example.com", "Bob")

	b := app.browser(t)
	resp := b.post("/register", url.Values{"email": {"bob@example.com"}, "name": {"Bobby"}, "password": {"another-pass"}})
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Contains(t, b.page("/login"), "already signed up")
}

func TestLoginFailureIsGeneric(t *testing.T) {
	app := newTestApp(t)
	app.browser(t).register("carol@example.com", "Carol")

	b := app.browser(t)
	resp := b.post("/login", url.Values{"email": {"carol@example.com"}, "password": {"wrong-password"}})
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	wrongPw := b.page("/login")

	resp = b.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"wrong-password"}})
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	unknown := b.page("/login")

	assert.Contains(t, wrongPw, "Invalid email or password.")
	assert.Contains(t, unknown, "Invalid email or password.")
	assert.Empty(t, b.cookie("filebox_session"))
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	resp := b.post("/login", url.Values{"csrf_token": {"forged"}, "email": {"x@example.com"}, "password": {"x"}})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")

	resp := b.upload("a.exe", "MZ")
	resp.Body.Close()
	assert.Equal(t, "/files", resp.Header.Get("Location"))
	assert.Contains(t, b.page("/files"), "File type not allowed.")
	assert.Empty(t, b.files())
	assert.Zero(t, app.blobCount(t))
}

func TestUploadWithoutFile(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")

	resp := b.post("/files/upload", nil)
	resp.Body.Close()
	assert.Equal(t, "/files", resp.Header.Get("Location"))
	assert.Contains(t, b.page("/files"), "No file selected.")
}

func TestUploadTooLarge(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")

	resp := b.upload("big.txt", strings.Repeat("x", 1<<20+10))
	resp.Body.Close()
	assert.Equal(t, "/files", resp.Header.Get("Location"))
	assert.Contains(t, b.page("/files"), "File is too large")
	assert.Zero(t, app.blobCount(t))
}

func TestUploadListDownload(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")

	resp := b.upload("a.pdf", "%PDF-1.4 hello")
	resp.Body.Close()
	assert.Equal(t, "/files", resp.Header.Get("Location"))

	files := b.files()
	require.Len(t, files, 1)
	assert.Equal(t, "a.pdf", files[0].OriginalName)
	assert.Contains(t, b.page("/files"), "a.pdf")

	resp = b.get("/files/download/" + itoa(files[0].ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename=a.pdf`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 hello", readAll(t, resp))
}

func TestSameNameUploadsAreKeptApart(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")

	b.upload("report.pdf", "first").Body.Close()
	b.upload("report.pdf", "second").Body.Close()

	files := b.files()
	require.Len(t, files, 2)
	assert.Equal(t, 2, app.blobCount(t))

	got := map[string]bool{}
	for _, f := range files {
		assert.Equal(t, "report.pdf", f.OriginalName)
		got[readAll(t, b.get("/files/download/"+itoa(f.ID)))] = true
	}
	assert.Equal(t, map[string]bool{"first": true, "second": true}, got)
}

func TestOtherUsersFilesAreForbidden(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.register("alice@example.com", "Alice")
	alice.upload("secret.txt", "alice only").Body.Close()
	id := itoa(alice.files()[0].ID)

	mallory := app.browser(t)
	mallory.register("mallory@example.com", "Mallory")

	resp := mallory.get("/files/download/" + id)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotContains(t, readAll(t, resp), "alice only")

	resp = mallory.post("/files/delete/"+id, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, mallory.files())

	resp = alice.get("/files/download/" + id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice only", readAll(t, resp))

	resp = alice.post("/files/delete/"+id, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestDeleteRemovesFile(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")
	b.upload("a.txt", "bye").Body.Close()
	id := itoa(b.files()[0].ID)

	resp := b.post("/files/delete/"+id, nil)
	resp.Body.Close()
	assert.Equal(t, "/files", resp.Header.Get("Location"))
	assert.Contains(t, b.page("/files"), "File deleted.")
	assert.Empty(t, b.files())
	assert.Zero(t, app.blobCount(t))

	resp = b.get("/files/download/" + id)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = b.post("/files/delete/"+id, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMissingAndMalformedFileIDs(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")

	for _, path := range []string{"/files/download/999", "/files/download/abc", "/files/download/-1"} {
		resp := b.get(path)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.register("alice@example.com", "Alice")
	b.upload("a.txt", "one").Body.Close()
	b.upload("b.csv", "two").Body.Close()
	require.Equal(t, 2, app.blobCount(t))

	resp := b.post("/account/delete", url.Values{"password": {"wrong-password"}})
	resp.Body.Close()
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, 2, app.blobCount(t))

	resp = b.post("/account/delete", url.Values{"password": {"correct-horse"}})
	resp.Body.Close()
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Zero(t, app.blobCount(t))

	resp = b.get("/dashboard")
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	other := app.browser(t)
	resp = other.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"correct-horse"}})
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestUnknownRouteAndMetrics(t *testing.T) {
	app := newTestApp(t)
	resp, err := http.Get(app.srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(app.srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "filebox_http_requests_total")
}

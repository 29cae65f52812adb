package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/filebox/utils"
)

const (
	csrfCookie = "filebox_csrf"
	// CSRFField is the hidden form field carrying the token.
	CSRFField = "csrf_token"
	// CSRFHeader lets scripted clients send the token as a header.
	CSRFHeader = "X-CSRF-Token"
	// ContextCSRFKey stores the token for templates.
	ContextCSRFKey = "csrf_token"

	multipartMemory = 32 << 20
)

// CSRF issues a per-browser token cookie and requires every unsafe request to
// echo it back in the form or header.
func CSRF(secure bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(csrfCookie)
		if err != nil || token == "" {
			token = strings.ReplaceAll(uuid.NewString(), "-", "")
			ctx.SetSameSite(http.SameSiteStrictMode)
			ctx.SetCookie(csrfCookie, token, 0, "/", "", secure, true)
		}
		ctx.Set(ContextCSRFKey, token)

		switch ctx.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			ctx.Next()
			return
		}

		sent := ctx.GetHeader(CSRFHeader)
		if sent == "" {
			if err := parseForm(ctx.Request); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					utils.Fail(ctx, http.StatusRequestEntityTooLarge, 41301, "request body too large")
					return
				}
			}
			sent = ctx.Request.PostFormValue(CSRFField)
		}
		if sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			utils.Fail(ctx, http.StatusForbidden, 40302, "invalid or missing CSRF token")
			return
		}
		ctx.Next()
	}
}

// CSRFToken returns the token for the current request.
func CSRFToken(ctx *gin.Context) string {
	return ctx.GetString(ContextCSRFKey)
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := r.ParseMultipartForm(multipartMemory)
		if errors.Is(err, http.ErrNotMultipart) {
			return nil
		}
		return err
	}
	return r.ParseForm()
}

// BodyLimit caps request bodies at limit bytes.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Body != nil && limit > 0 {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}

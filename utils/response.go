package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// WantsJSON reports whether the client prefers a JSON body over an HTML page.
func WantsJSON(ctx *gin.Context) bool {
	accept := strings.ToLower(ctx.GetHeader("Accept"))
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// Fail aborts the request with an error page for browsers, or the JSON envelope for API clients.
func Fail(ctx *gin.Context, status int, code int, message string) {
	if WantsJSON(ctx) {
		Error(ctx, status, code, message)
	} else {
		ctx.HTML(status, errorTemplate(status), gin.H{
			"Status":  status,
			"Message": message,
			"Code":    code,
		})
	}
	ctx.Abort()
}

func errorTemplate(status int) string {
	switch status {
	case http.StatusForbidden:
		return "403.html"
	case http.StatusNotFound:
		return "404.html"
	case http.StatusInternalServerError:
		return "500.html"
	default:
		return "error.html"
	}
}

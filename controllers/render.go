package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/filebox/middleware"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

// render executes a page template with the values every page needs.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if id, ok := middleware.CurrentIdentity(ctx); ok {
		data["Identity"] = id
	}
	data["CSRF"] = middleware.CSRFToken(ctx)
	data["Flashes"] = utils.PopFlashes(ctx)
	ctx.HTML(status, name, data)
}

// redirectWithFlash queues a flash message and sends the browser to location.
func redirectWithFlash(ctx *gin.Context, location, category, message string) {
	utils.SetFlash(ctx, category, message)
	ctx.Redirect(http.StatusFound, location)
}

// inputProblem extracts the user-facing part of an ErrInvalidInput.
func inputProblem(err error) string {
	if !errors.Is(err, services.ErrInvalidInput) {
		return "Invalid input."
	}
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

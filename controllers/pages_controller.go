package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/filebox/middleware"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

// PageController serves the landing page, the dashboard and the health probe.
type PageController struct {
	creds *services.CredentialStore
}

// NewPageController creates a PageController.
func NewPageController(creds *services.CredentialStore) *PageController {
	return &PageController{creds: creds}
}

// Home renders the landing page.
func (p *PageController) Home(ctx *gin.Context) {
	render(ctx, http.StatusOK, "index.html", gin.H{"Title": "Home"})
}

// Dashboard shows the signed-in user's file count.
func (p *PageController) Dashboard(ctx *gin.Context) {
	identity, _ := middleware.CurrentIdentity(ctx)
	count, err := p.creds.CountFiles(ctx.Request.Context(), identity)
	if err != nil {
		utils.Logger.Error("count files", zap.Uint("user_id", identity.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50010, "failed to load dashboard")
		return
	}
	render(ctx, http.StatusOK, "dashboard.html", gin.H{"Title": "Dashboard", "FileCount": count})
}

// Health reports liveness.
func (p *PageController) Health(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"status": "ok"})
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/filebox/middleware"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

// AccountController handles account removal.
type AccountController struct {
	creds   *services.CredentialStore
	session middleware.Session
}

// NewAccountController creates an AccountController.
func NewAccountController(creds *services.CredentialStore, session middleware.Session) *AccountController {
	return &AccountController{creds: creds, session: session}
}

// Delete removes the current account and all of its files after the password is confirmed.
func (a *AccountController) Delete(ctx *gin.Context) {
	identity, _ := middleware.CurrentIdentity(ctx)
	password := ctx.PostForm("password")
	if password == "" {
		redirectWithFlash(ctx, "/dashboard", utils.FlashWarning, "Enter your password to delete the account.")
		return
	}

	removed, err := a.creds.DeleteAccount(ctx.Request.Context(), identity, password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		redirectWithFlash(ctx, "/dashboard", utils.FlashDanger, "Password incorrect, account not deleted.")
		return
	case errors.Is(err, services.ErrNotFound):
		a.session.Clear(ctx)
		redirectWithFlash(ctx, "/", utils.FlashInfo, "Account no longer exists.")
		return
	case err != nil:
		utils.Logger.Error("delete account", zap.Uint("user_id", identity.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50030, "failed to delete account")
		return
	}

	revokeSession(ctx, a.session)
	noun := "files"
	if removed == 1 {
		noun = "file"
	}
	redirectWithFlash(ctx, "/", utils.FlashInfo, fmt.Sprintf("Your account and %d %s were deleted.", removed, noun))
}

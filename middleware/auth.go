package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

const (
	// ContextIdentityKey stores the services.Identity of the signed-in user.
	ContextIdentityKey = "identity"
	// ContextClaimsKey stores the parsed session token claims.
	ContextClaimsKey = "session_claims"
)

// UserLookup resolves a session's user id to an account.
type UserLookup interface {
	Lookup(ctx context.Context, id uint) (*models.User, error)
}

// Session describes the session cookie.
type Session struct {
	Secret     string
	CookieName string
	Secure     bool
}

// Set writes the session cookie.
func (s Session) Set(ctx *gin.Context, token string, maxAgeSeconds int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(s.CookieName, token, maxAgeSeconds, "/", "", s.Secure, true)
}

// Clear expires the session cookie.
func (s Session) Clear(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(s.CookieName, "", -1, "/", "", s.Secure, true)
}

// LoadIdentity resolves the session cookie into an Identity when it carries a
// valid, unrevoked token for an existing user. Requests without one continue anonymously.
func LoadIdentity(s Session, users UserLookup) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw, err := ctx.Cookie(s.CookieName)
		if err != nil || raw == "" {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(s.Secret, raw)
		if err != nil || utils.IsTokenBlacklisted(claims.ID) {
			s.Clear(ctx)
			ctx.Next()
			return
		}

		user, err := users.Lookup(ctx.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				s.Clear(ctx)
			} else {
				utils.Logger.Error("resolve session user", zap.Uint("user_id", claims.UserID), zap.Error(err))
			}
			ctx.Next()
			return
		}

		ctx.Set(ContextIdentityKey, services.IdentityOf(user))
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// LoginRequired sends anonymous browsers to the login page and answers API clients with 401.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := CurrentIdentity(ctx); ok {
			ctx.Next()
			return
		}
		if utils.WantsJSON(ctx) {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "login required")
			ctx.Abort()
			return
		}
		utils.SetFlash(ctx, utils.FlashWarning, "Please log in to access this page.")
		ctx.Redirect(http.StatusFound, "/login")
		ctx.Abort()
	}
}

// CurrentIdentity returns the signed-in user, if any.
func CurrentIdentity(ctx *gin.Context) (services.Identity, bool) {
	v, ok := ctx.Get(ContextIdentityKey)
	if !ok {
		return services.Identity{}, false
	}
	id, ok := v.(services.Identity)
	return id, ok && id.ID != 0
}

// SessionClaims returns the claims of the current session token.
func SessionClaims(ctx *gin.Context) (*utils.Claims, bool) {
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	c, ok := v.(*utils.Claims)
	return c, ok
}

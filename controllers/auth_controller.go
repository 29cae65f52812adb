package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/filebox/middleware"
	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	creds    *services.CredentialStore
	session  middleware.Session
	ttl      time.Duration
	throttle *utils.LoginThrottle
	captcha  bool
}

// NewAuthController creates an AuthController. A nil throttle disables lockouts.
func NewAuthController(creds *services.CredentialStore, session middleware.Session, ttl time.Duration, throttle *utils.LoginThrottle, captcha bool) *AuthController {
	return &AuthController{creds: creds, session: session, ttl: ttl, throttle: throttle, captcha: captcha}
}

type registerForm struct {
	Email         string `form:"email" binding:"required,max=120"`
	Name          string `form:"name" binding:"required,max=150"`
	Password      string `form:"password" binding:"required"`
	CaptchaID     string `form:"captcha_id"`
	CaptchaAnswer string `form:"captcha_answer"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// RegisterPage renders the registration form.
func (a *AuthController) RegisterPage(ctx *gin.Context) {
	if _, ok := middleware.CurrentIdentity(ctx); ok {
		ctx.Redirect(http.StatusFound, "/dashboard")
		return
	}
	data := gin.H{"Title": "Register", "Email": ctx.Query("email")}
	if a.captcha {
		id, image, err := utils.GenerateCaptcha()
		if err != nil {
			utils.Logger.Error("generate captcha", zap.Error(err))
			utils.Fail(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
			return
		}
		data["CaptchaID"] = id
		data["CaptchaImage"] = image
	}
	render(ctx, http.StatusOK, "register.html", data)
}

// Register creates the account and signs the new user in.
func (a *AuthController) Register(ctx *gin.Context) {
	var form registerForm
	if err := ctx.ShouldBind(&form); err != nil {
		redirectWithFlash(ctx, "/register", utils.FlashDanger, "Please fill in email, name and password.")
		return
	}
	if a.captcha && !utils.VerifyCaptcha(strings.TrimSpace(form.CaptchaID), strings.TrimSpace(form.CaptchaAnswer)) {
		redirectWithFlash(ctx, "/register", utils.FlashDanger, "The captcha answer was wrong or expired.")
		return
	}

	user, err := a.creds.Register(ctx.Request.Context(), form.Email, form.Name, form.Password)
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		redirectWithFlash(ctx, "/login", utils.FlashWarning, "You've already signed up with that email, log in instead!")
		return
	case errors.Is(err, services.ErrInvalidInput):
		redirectWithFlash(ctx, "/register", utils.FlashDanger, inputProblem(err))
		return
	case err != nil:
		utils.Logger.Error("register user", zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50002, "failed to create account")
		return
	}

	if !a.startSession(ctx, user) {
		return
	}
	utils.Logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("ip", ctx.ClientIP()))
	redirectWithFlash(ctx, "/dashboard", utils.FlashSuccess, "Account created, welcome!")
}

// LoginPage renders the login form.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	if _, ok := middleware.CurrentIdentity(ctx); ok {
		ctx.Redirect(http.StatusFound, "/dashboard")
		return
	}
	render(ctx, http.StatusOK, "login.html", gin.H{"Title": "Log in"})
}

// Login verifies the credentials and issues the session cookie. The failure
// message never reveals whether the email exists.
func (a *AuthController) Login(ctx *gin.Context) {
	var form loginForm
	if err := ctx.ShouldBind(&form); err != nil {
		redirectWithFlash(ctx, "/login", utils.FlashDanger, "Please enter your email and password.")
		return
	}

	key := ctx.ClientIP() + "|" + services.NormalizeEmail(form.Email)
	if a.throttle.Locked(key) {
		utils.LoginsTotal.WithLabelValues("locked").Inc()
		redirectWithFlash(ctx, "/login", utils.FlashDanger, "Too many failed attempts, please try again later.")
		return
	}

	user, err := a.creds.Authenticate(ctx.Request.Context(), form.Email, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		a.throttle.Fail(key)
		utils.LoginsTotal.WithLabelValues("failed").Inc()
		redirectWithFlash(ctx, "/login", utils.FlashDanger, "Invalid email or password.")
		return
	}
	if err != nil {
		utils.Logger.Error("authenticate", zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50004, "login failed")
		return
	}

	a.throttle.Reset(key)
	if !a.startSession(ctx, user) {
		return
	}
	utils.LoginsTotal.WithLabelValues("success").Inc()
	redirectWithFlash(ctx, "/dashboard", utils.FlashSuccess, "Logged in successfully!")
}

// Logout revokes the session token until its natural expiry and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	revokeSession(ctx, a.session)
	redirectWithFlash(ctx, "/", utils.FlashInfo, "You have been logged out.")
}

func (a *AuthController) startSession(ctx *gin.Context, user *models.User) bool {
	token, _, err := utils.GenerateToken(a.session.Secret, user.ID, user.Email, a.ttl)
	if err != nil {
		utils.Logger.Error("generate session token", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50003, "failed to start session")
		return false
	}
	a.session.Set(ctx, token, int(a.ttl.Seconds()))
	return true
}

func revokeSession(ctx *gin.Context, session middleware.Session) {
	if claims, ok := middleware.SessionClaims(ctx); ok {
		expiresAt := time.Now().Add(72 * time.Hour)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(claims.ID, expiresAt)
	}
	session.Clear(ctx)
}

package controller

import (
	"net/http"

	"placeprep_backend/internal/config"
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	Cfg         *config.Config
}

func NewAuthController(authService *service.AuthService, cfg *config.Config) *AuthController {
	return &AuthController{AuthService: authService, Cfg: cfg}
}

// swagger:model EmailRequest
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// swagger:model TokenRequest
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// swagger:model ResetPasswordRequest
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// swagger:model GoogleAuthRequest
type GoogleAuthRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

func (c *AuthController) setAuthCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.Cfg.JWT.CookieName, token, maxAge, "/", "", c.Cfg.Server.Mode == gin.ReleaseMode, true)
}

func (c *AuthController) signedIn(ctx *gin.Context, res *service.AuthResult) {
	c.setAuthCookie(ctx, res.Token, int(c.Cfg.JWT.ExpireTime.Seconds()))
	util.Success(ctx, gin.H{"token": res.Token, "user": res.User})
}

// Signup godoc
// @Summary Register a new account
// @Description Creates an unverified user and emails a verification link
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body service.SignupRequest true "Signup details"
// @Success 201 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "Invalid input or email already registered"
// @Router /api/auth/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req service.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Signup(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// Login godoc
// @Summary Log in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body service.LoginRequest true "Credentials"
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.Response "Invalid credentials"
// @Failure 403 {object} util.Response "Email not verified"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.Login(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	c.signedIn(ctx, res)
}

// Logout godoc
// @Summary Clear the auth cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.setAuthCookie(ctx, "", -1)
	util.Success(ctx, nil)
}

// VerifyEmail godoc
// @Summary Confirm an email address
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body TokenRequest true "Verification token"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "Invalid or expired token"
// @Router /api/auth/verify-email [post]
func (c *AuthController) VerifyEmail(ctx *gin.Context) {
	var req TokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.VerifyEmail(ctx.Request.Context(), req.Token); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Email verified"})
}

// ResendVerification godoc
// @Summary Send a fresh verification link
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Account email"
// @Success 200 {object} util.Response
// @Router /api/auth/resend-verification [post]
func (c *AuthController) ResendVerification(ctx *gin.Context) {
	var req EmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.ResendVerification(ctx.Request.Context(), req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "If the account exists and is unverified, a new link has been sent"})
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Account email"
// @Success 200 {object} util.Response
// @Router /api/auth/forgot-password [post]
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req EmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.ForgotPassword(ctx.Request.Context(), req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "If the account exists, a reset link has been sent"})
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "Invalid or expired token"
// @Router /api/auth/reset-password [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.ResetPassword(ctx.Request.Context(), req.Token, req.Password); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Password updated"})
}

// GoogleAuth godoc
// @Summary Sign in with a Google ID token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body GoogleAuthRequest true "Google ID token"
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.Response "Token rejected"
// @Router /api/auth/google-auth [post]
func (c *AuthController) GoogleAuth(ctx *gin.Context) {
	var req GoogleAuthRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.GoogleAuth(ctx.Request.Context(), req.IDToken)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	c.signedIn(ctx, res)
}

// CreateModerator godoc
// @Summary Create a moderator account
// @Tags Auth
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SignupRequest true "Moderator details"
// @Success 201 {object} util.Response{data=model.User}
// @Failure 403 {object} util.Response "Admins only"
// @Router /api/auth/create-moderator [post]
func (c *AuthController) CreateModerator(ctx *gin.Context) {
	var req service.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.CreateModerator(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// Me godoc
// @Summary Current user profile
// @Tags Auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 401 {object} util.Response
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.AuthService.Me(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

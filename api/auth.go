package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iraa22/WHEELWISE-B/internal/auth"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
)

type AuthHandler struct {
	provider auth.Authenticator
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type signInResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type profileResponse struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	Birthdate string `json:"birthdate"`
}

func NewAuthHandler(provider auth.Authenticator) *AuthHandler {
	return &AuthHandler{provider: provider}
}

// Register mounts the public routes. protected must already carry RequireSession.
func (h *AuthHandler) Register(public, protected *gin.RouterGroup) {
	public.POST("/signup", h.signUp)
	public.POST("/signin", h.signIn)
	public.POST("/signout", h.signOut)
	protected.GET("/me", h.me)
}

func (h *AuthHandler) signUp(c *gin.Context) {
	var req auth.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.provider.SignUp(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *AuthHandler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.provider.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signInResponse{Token: token, User: toUserResponse(user)})
}

func (h *AuthHandler) signOut(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if err := h.provider.SignOut(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		unauthorized(c, auth.ErrSessionNotFound.Error())
		return
	}
	profile, err := h.provider.Profile(c.Request.Context(), user.UID)
	if err != nil {
		if !domain.IsNotFound(err) {
			writeError(c, err)
			return
		}
		profile = &domain.Profile{UID: user.UID, Email: user.Email}
	}
	c.JSON(http.StatusOK, profileResponse{
		UID:       profile.UID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Gender:    profile.Gender,
		Birthdate: profile.Birthdate,
	})
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{UID: u.UID, Email: u.Email, DisplayName: u.DisplayName}
}

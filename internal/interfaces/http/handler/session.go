package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/application/account"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"github.com/sifnet/storefront/internal/interfaces/http/middleware"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
)

// SessionResponse describes the current session
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user,omitempty"`
}

// RegisterResponse is the backend's confirmation of a new account
type RegisterResponse struct {
	Message string `json:"message"`
}

// SessionHandler serves login, logout and registration
type SessionHandler struct {
	BaseHandler
	svc *account.Service
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(svc *account.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Routes returns the session route group
func (h *SessionHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("session", "/session")
	g.GET("", h.Get)
	g.POST("", h.Login)
	g.DELETE("", h.Logout)
	g.POST("/register", h.Register)
	return g
}

// Get returns the signed-in user
// GET /session
func (h *SessionHandler) Get(c *gin.Context) {
	user, ok := h.svc.Current()
	if !ok {
		h.Success(c, SessionResponse{})
		return
	}
	h.Success(c, SessionResponse{Authenticated: true, User: &user})
}

// Login signs in through the backend
// POST /session
func (h *SessionHandler) Login(c *gin.Context) {
	var in account.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	user, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SessionResponse{Authenticated: true, User: &user})
}

// Logout ends the session
// DELETE /session
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SessionResponse{})
}

// Register creates an account
// POST /session/register
func (h *SessionHandler) Register(c *gin.Context) {
	var in auth.RegistrationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	msg, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, RegisterResponse{Message: msg})
}

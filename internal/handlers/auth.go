package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hfenton/property_search/internal/events"
	"github.com/hfenton/property_search/internal/invite"
	"github.com/hfenton/property_search/internal/logging"
	mwauth "github.com/hfenton/property_search/internal/middleware/auth"
	"github.com/hfenton/property_search/internal/metrics"
	"github.com/hfenton/property_search/internal/oauth"
	"github.com/hfenton/property_search/internal/service"
	"github.com/hfenton/property_search/internal/session"
	"github.com/hfenton/property_search/internal/tokens"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Sessions *session.Store
	Google   *oauth.Google
	Producer *events.Producer
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"    validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			metrics.LoginAttempts.WithLabelValues("not_found").Inc()
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		case errors.Is(err, service.ErrBadPassword):
			metrics.LoginAttempts.WithLabelValues("bad_password").Inc()
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password.")
		default:
			metrics.LoginAttempts.WithLabelValues("error").Inc()
			l.Error("login_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	refreshCookie := session.CreateCookie("refreshToken", res.RefreshToken, "/", time.Now().Add(tokens.RefreshTokenTTL))
	c.SetCookie(refreshCookie)

	h.publishUserEvent(c, "user_logged_in", res.User.ID, res.User.Username)

	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": res.AccessToken,
	})
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username        string `json:"username"        validate:"required"`
		Email           string `json:"email"           validate:"required,email"`
		Name            string `json:"name"            validate:"required"`
		Password        string `json:"password"        validate:"required,min=8"`
		InvitationToken string `json:"invitationToken" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Name:            req.Name,
		Password:        req.Password,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, invite.ErrNotFound):
			metrics.Registrations.WithLabelValues("invitation_not_found").Inc()
			return echo.NewHTTPError(http.StatusBadRequest, "Invitation token does not exist.")
		case errors.Is(err, invite.ErrAlreadyUsed):
			metrics.Registrations.WithLabelValues("invitation_used").Inc()
			metrics.InviteConsumeConflicts.Inc()
			return echo.NewHTTPError(http.StatusBadRequest, "Invitation token has already been used.")
		case errors.Is(err, service.ErrUsernameTaken):
			metrics.Registrations.WithLabelValues("username_taken").Inc()
			return echo.NewHTTPError(http.StatusBadRequest, "Username already exists.")
		case errors.Is(err, service.ErrEmailTaken):
			metrics.Registrations.WithLabelValues("email_taken").Inc()
			return echo.NewHTTPError(http.StatusBadRequest, "Email already exists.")
		default:
			metrics.Registrations.WithLabelValues("error").Inc()
			l.Error("register_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}
	metrics.Registrations.WithLabelValues("success").Inc()

	h.publishUserEvent(c, "user_registered", user.ID, user.Username)

	l.Info("register_successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User registered successfully.",
	})
}

func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	refreshToken := ""
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		refreshToken = cookie.Value
	}
	if refreshToken == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.Bind(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("missing").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "Refresh token missing")
	}

	accessToken, err := h.Svc.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("invalid").Inc()
		l.Warn("refresh_failed", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token")
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(session.CreateCookie(oauth.StateCookieName, state, "/", time.Now().Add(10*time.Minute)))
	return c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_google_callback")

	stateCookie, err := c.Cookie(oauth.StateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		l.Warn("callback_failed", "status", 400, "reason", "state mismatch")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	c.SetCookie(session.DeleteCookie(oauth.StateCookieName, "/"))

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	token, err := h.Google.Exchange(ctx, code)
	if err != nil {
		l.Error("callback_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider exchange failed")
	}

	info, err := h.Google.FetchUserInfo(ctx, token)
	if err != nil {
		l.Error("callback_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider lookup failed")
	}

	user, err := h.Svc.ProvisionOAuthUser(ctx, info.Email, info.Name)
	if err != nil {
		l.Error("callback_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	sid, err := h.Sessions.Create(ctx, user.ID)
	if err != nil {
		l.Error("callback_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	c.SetCookie(session.CreateCookie(session.CookieName, h.Sessions.Sign(sid), "/", time.Now().Add(session.TTL)))

	l.Info("google_login_successful", "user_id", user.ID)
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	identity, _ := mwauth.IdentityFrom(c)
	if identity.Scheme == mwauth.SchemeSession {
		if cookie, err := c.Cookie(session.CookieName); err == nil {
			if sid, ok := h.Sessions.Verify(cookie.Value); ok {
				if err := h.Sessions.Destroy(ctx, sid); err != nil {
					l.Error("logout_failed", "status", 500, "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError, "could not destroy session")
				}
			}
		}
	}

	c.SetCookie(session.DeleteCookie(session.CookieName, "/"))
	c.SetCookie(session.DeleteCookie("refreshToken", "/"))

	l.Info("logout_successful", "user_id", identity.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Logged out.",
	})
}

func (h *AuthHandler) publishUserEvent(c echo.Context, eventType string, userID uint, username string) {
	event := map[string]any{
		"type":     eventType,
		"user_id":  userID,
		"username": username,
	}

	ctx, cancel := publishCtx(c)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

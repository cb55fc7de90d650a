package webui

import (
	"fmt"
	"net/http"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/mattkuda/calendar-copilot/pkg/oauth"
	"github.com/mattkuda/calendar-copilot/pkg/xlog"
)

// States older than this are rejected; consent flows do not take longer.
const stateTTL = 10 * time.Minute

// InitiateOAuth starts the Google consent flow. The response carries the
// authorization URL for the client to open; the state nonce is remembered so
// the callback can reject forged redirects.
func (a *App) InitiateOAuth() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		config, err := oauth.ConsentConfig()
		if err != nil {
			return errorJSONMessage(c, http.StatusInternalServerError, err.Error())
		}

		state := uuid.NewString()
		a.states.Store(state, time.Now())

		authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		return c.JSON(fiber.Map{
			"success":  true,
			"auth_url": authURL,
			"state":    state,
		})
	}
}

// HandleOAuthCallback exchanges the authorization code and installs the
// captured token pair. This is the only writer of the token store.
func (a *App) HandleOAuthCallback() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if errorParam := c.Query("error"); errorParam != "" {
			return a.renderCloseWindow(c, false, fmt.Sprintf("OAuth error: %s", errorParam))
		}

		authCode := c.Query("code")
		if authCode == "" {
			return a.renderCloseWindow(c, false, "Authorization code missing")
		}

		state := c.Query("state")
		issued, ok := a.states.LoadAndDelete(state)
		if !ok {
			return a.renderCloseWindow(c, false, "Invalid state parameter")
		}
		if time.Since(issued.(time.Time)) > stateTTL {
			return a.renderCloseWindow(c, false, "Authorization flow expired, please retry")
		}

		config, err := oauth.ConsentConfig()
		if err != nil {
			return a.renderCloseWindow(c, false, err.Error())
		}

		token, err := config.Exchange(c.Context(), authCode)
		if err != nil {
			xlog.Error("authorization code exchange failed", "error", err)
			return a.renderCloseWindow(c, false, "Failed to exchange authorization code")
		}

		a.tokens.Set(token)
		xlog.Info("delegated calendar token captured", "expires", token.Expiry)

		return a.renderCloseWindow(c, true, "Google Calendar connected")
	}
}

// renderCloseWindow sends a minimal page that notifies the opener and closes
// the consent popup.
func (a *App) renderCloseWindow(c *fiber.Ctx, success bool, message string) error {
	html := fmt.Sprintf(`<!DOCTYPE html>
	<html>
	<head><title>OAuth Complete</title></head>
	<body>
	<script>
	if (window.opener) {
		window.opener.postMessage({
			type: 'OAUTH_COMPLETE',
			success: %t,
			message: '%s'
		}, window.location.origin);
	}
	window.close();
	</script>
	</body>
	</html>`, success, message)

	c.Set("Content-Type", "text/html")
	return c.SendString(html)
}

package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/edforge/test-session-service/internal/config"
	"github.com/edforge/test-session-service/internal/utils"
)

// TokenVerifier abstracts casdoor token parsing so tests can stub it.
type TokenVerifier interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// NewCasdoorVerifier builds the production verifier from config.
func NewCasdoorVerifier(cfg *config.Config) TokenVerifier {
	return casdoorsdk.NewClient(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
}

// AuthMiddleware verifies the bearer token and stores the user id in
// the request context. Unauthenticated requests get a 401 carrying the
// login URL with a return_to parameter; the caller decides whether to
// navigate.
func AuthMiddleware(verifier TokenVerifier, loginURL string, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			rejectUnauthenticated(c, loginURL, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			rejectUnauthenticated(c, loginURL, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := verifier.ParseJwtToken(parts[1])
		if err != nil {
			logger.Warn("Token verification failed", "error", err, "path", c.Request.URL.Path)
			rejectUnauthenticated(c, loginURL, "Invalid or expired token")
			return
		}

		userID := claims.User.Id
		if userID == "" {
			userID = claims.User.Name
		}
		if userID == "" {
			rejectUnauthenticated(c, loginURL, "Token carries no user identity")
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context, loginURL, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Message:  "User not authenticated",
		Details:  details,
		Code:     "unauthenticated",
		Redirect: loginRedirect(loginURL, c.Request.URL.RequestURI()),
	})
}

func loginRedirect(loginURL, returnTo string) string {
	if loginURL == "" {
		return ""
	}
	return loginURL + "?return_to=" + url.QueryEscape(returnTo)
}

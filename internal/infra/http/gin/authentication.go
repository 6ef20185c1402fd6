package ginserver

import (
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/policies"
)

// TokenVerifier turns a bearer token into the calling principal.
type TokenVerifier interface {
	Verify(raw string) (policies.Principal, error)
}

type AuthMiddleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

// Handle attaches the principal of a valid bearer token to the request context.
// Requests without a valid token continue anonymously; handlers decide whether
// authentication is required.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Verifier == nil {
		c.Next()
		return
	}
	p, err := m.Verifier.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Request = c.Request.WithContext(policies.ContextWithPrincipal(c.Request.Context(), p))
	c.Next()
}

func currentPrincipal(c *gin.Context) (policies.Principal, bool) {
	return policies.PrincipalFromContext(c.Request.Context())
}

// requireRole answers 401 or 403 itself and reports false when the caller may not proceed.
func requireRole(c *gin.Context, role string) (policies.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		writeError(c, nil, policies.ErrUnauthenticated, "")
		return policies.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		writeError(c, nil, policies.ErrForbidden, "")
		return policies.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

package middleware

import (
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/requestdata"
  "github.com/reefspotter/backend/internal/services"
)

type AuthMiddleware struct {
  log         *logger.Logger
  authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
  middlewareLogger := log.With("middleware", "AuthMiddleware")
  return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

// RequireAuth rejects requests without a valid bearer token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractBearerToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
      return
    }
    rd := requestdata.GetRequestData(ctx)
    if rd == nil || rd.UserID == uuid.Nil {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
      return
    }
    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}

// Session resolves the caller into request data for the unlock endpoints.
// Guests identify themselves with an X-Session-ID header; authenticated
// callers may send the bearer token as well (an invalid token degrades to
// guest rather than failing, auth errors never block unlock reads). A
// request with neither is unroutable and rejected.
func (am *AuthMiddleware) Session() gin.HandlerFunc {
  return func(c *gin.Context) {
    ctx := c.Request.Context()

    var sessionID uuid.UUID
    if raw := strings.TrimSpace(c.GetHeader("X-Session-ID")); raw != "" {
      parsed, err := uuid.Parse(raw)
      if err != nil {
        c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
        return
      }
      sessionID = parsed
    }

    tokenString := extractBearerToken(c)
    if tokenString != "" {
      authedCtx, err := am.authService.SetContextFromToken(ctx, tokenString)
      if err != nil {
        am.log.Debug("Ignoring invalid token on session route", "error", err)
      } else {
        ctx = authedCtx
      }
    }

    rd := requestdata.GetRequestData(ctx)
    if rd == nil {
      rd = &requestdata.RequestData{}
      ctx = requestdata.WithRequestData(ctx, rd)
    }
    rd.SessionID = sessionID

    if rd.SessionID == uuid.Nil && rd.UserID == uuid.Nil {
      c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
      return
    }
    if rd.SessionID == uuid.Nil {
      // Authenticated client without a session header: key the session on
      // the account so the store still has a stable home for the mirror.
      rd.SessionID = rd.UserID
    }

    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}

func extractBearerToken(c *gin.Context) string {
  if qToken := c.Query("token"); qToken != "" {
    return qToken
  }
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  return ""
}

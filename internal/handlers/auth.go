package handlers

import (
  "errors"
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "github.com/reefspotter/backend/internal/requestdata"
  "github.com/reefspotter/backend/internal/services"
  "github.com/reefspotter/backend/internal/types"
)

type AuthHandler struct {
  authService   services.AuthService
  unlockService services.UnlockService
}

func NewAuthHandler(authService services.AuthService, unlockService services.UnlockService) *AuthHandler {
  return &AuthHandler{authService: authService, unlockService: unlockService}
}

type mergeResult struct {
  Status   string      `json:"status"`
  Unlocked []uuid.UUID `json:"unlocked"`
  Unmerged []uuid.UUID `json:"unmerged,omitempty"`
}

func (ah *AuthHandler) Register(c *gin.Context) {
  var req struct {
    Email         string      `json:"email"`
    Password      string      `json:"password"`
    Nickname      string      `json:"nickname"`
    FavouriteFish string      `json:"favourite_fish"`
    Location      string      `json:"location"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid request body"))
    return
  }
  user := types.User{
    Email:    req.Email,
    Password: req.Password,
    Nickname: req.Nickname,
    Metadata: datatypes.JSONMap{
      "favourite_fish": req.FavouriteFish,
      "location":       req.Location,
    },
  }
  if err := ah.authService.RegisterUser(c.Request.Context(), &user); err != nil {
    status := http.StatusBadRequest
    code := "registration_failed"
    if errors.Is(err, services.ErrEmailTaken) {
      status = http.StatusConflict
      code = "email_taken"
    }
    RespondError(c, status, code, err)
    return
  }

  // A fresh account goes straight to a logged-in state, and any progress
  // accumulated as a guest is merged right away.
  loggedIn, accessToken, refreshToken, err := ah.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    RespondError(c, http.StatusUnauthorized, "auth_failed", err)
    return
  }
  merge := ah.attachIdentity(c, loggedIn)
  accessTTL := ah.authService.GetAccessTTL()
  c.JSON(http.StatusOK, gin.H{
    "access_token":  accessToken,
    "refresh_token": refreshToken,
    "expires_in":    int(accessTTL.Seconds()),
    "user":          loggedIn,
    "merge":         merge,
  })
}

func (ah *AuthHandler) Login(c *gin.Context) {
  var req struct {
    Email    string `json:"email"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid request body"))
    return
  }
  user, accessToken, refreshToken, err := ah.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    RespondError(c, http.StatusUnauthorized, "auth_failed", err)
    return
  }
  merge := ah.attachIdentity(c, user)
  accessTTL := ah.authService.GetAccessTTL()
  c.JSON(http.StatusOK, gin.H{
    "access_token":  accessToken,
    "refresh_token": refreshToken,
    "expires_in":    int(accessTTL.Seconds()),
    "user":          user,
    "merge":         merge,
  })
}

// attachIdentity runs the one-shot guest merge against the caller's session.
// Merge problems never fail the login itself: the tokens are already issued
// and the guest set is preserved for retry when the gateway is down.
func (ah *AuthHandler) attachIdentity(c *gin.Context, user *types.User) mergeResult {
  sessionID := sessionIDFromHeader(c)
  if sessionID == uuid.Nil {
    sessionID = user.ID
  }
  identity := &types.Identity{UserID: user.ID, Email: user.Email}
  unlocked, unmerged, err := ah.unlockService.SetIdentity(c.Request.Context(), sessionID, identity)
  switch {
  case err == nil:
    return mergeResult{Status: "complete", Unlocked: unlocked, Unmerged: unmerged}
  case errors.Is(err, services.ErrRemoteUnavailable):
    return mergeResult{Status: "remote_unavailable"}
  default:
    return mergeResult{Status: "partial", Unlocked: unlocked, Unmerged: unmerged}
  }
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
  accessToken, refreshToken, err := ah.authService.RefreshUser(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusUnauthorized, "refresh_failed", err)
    return
  }
  accessTTL := ah.authService.GetAccessTTL()
  c.JSON(http.StatusOK, gin.H{
    "access_token":  accessToken,
    "refresh_token": refreshToken,
    "expires_in":    int(accessTTL.Seconds()),
  })
}

func (ah *AuthHandler) Logout(c *gin.Context) {
  if err := ah.authService.LogoutUser(c.Request.Context()); err != nil {
    RespondError(c, http.StatusBadRequest, "logout_failed", err)
    return
  }
  // Back to guest: the session keeps running with an empty set while the
  // remote rows stay under the account for next login.
  rd := requestdata.GetRequestData(c.Request.Context())
  sessionID := sessionIDFromHeader(c)
  if sessionID == uuid.Nil && rd != nil {
    sessionID = rd.UserID
  }
  if sessionID != uuid.Nil {
    ah.unlockService.ClearIdentity(sessionID)
  }
  c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func sessionIDFromHeader(c *gin.Context) uuid.UUID {
  raw := strings.TrimSpace(c.GetHeader("X-Session-ID"))
  if raw == "" {
    return uuid.Nil
  }
  parsed, err := uuid.Parse(raw)
  if err != nil {
    return uuid.Nil
  }
  return parsed
}

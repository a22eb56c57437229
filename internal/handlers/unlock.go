package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/reefspotter/backend/internal/requestdata"
  "github.com/reefspotter/backend/internal/services"
  "github.com/reefspotter/backend/internal/types"
)

type UnlockHandler struct {
  unlockService services.UnlockService
}

func NewUnlockHandler(unlockService services.UnlockService) *UnlockHandler {
  return &UnlockHandler{unlockService: unlockService}
}

func (uh *UnlockHandler) Toggle(c *gin.Context) {
  var req struct {
    SpeciesID uuid.UUID `json:"species_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.SpeciesID == uuid.Nil {
    RespondError(c, http.StatusBadRequest, "bad_request", errors.New("species_id is required"))
    return
  }

  rd := requestdata.GetRequestData(c.Request.Context())
  identity := identityFrom(rd)

  unlocked, err := uh.unlockService.Toggle(c.Request.Context(), rd.SessionID, identity, req.SpeciesID)
  if err != nil {
    if errors.Is(err, services.ErrRemoteUnavailable) {
      RespondError(c, http.StatusServiceUnavailable, "remote_unavailable", err)
      return
    }
    RespondError(c, http.StatusBadRequest, "toggle_failed", err)
    return
  }
  RespondOK(c, gin.H{"species_id": req.SpeciesID, "unlocked": unlocked})
}

func (uh *UnlockHandler) List(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  identity := identityFrom(rd)

  snapshot, unmerged, err := uh.unlockService.Snapshot(c.Request.Context(), rd.SessionID, identity)
  if err != nil {
    if errors.Is(err, services.ErrRemoteUnavailable) {
      RespondError(c, http.StatusServiceUnavailable, "remote_unavailable", err)
      return
    }
    RespondError(c, http.StatusBadRequest, "unlocks_failed", err)
    return
  }
  ids := make([]uuid.UUID, 0, len(snapshot))
  for id := range snapshot {
    ids = append(ids, id)
  }
  RespondOK(c, gin.H{"unlocked": ids, "unmerged": unmerged})
}

// RetryMerge re-runs the reconciliation for the unmerged residue of a
// partial merge. Safe to call any number of times.
func (uh *UnlockHandler) RetryMerge(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  identity := identityFrom(rd)
  if identity == nil {
    RespondError(c, http.StatusUnauthorized, "auth_required", errors.New("merge requires a logged-in account"))
    return
  }

  unlocked, unmerged, err := uh.unlockService.SetIdentity(c.Request.Context(), rd.SessionID, identity)
  if err != nil && errors.Is(err, services.ErrRemoteUnavailable) {
    RespondError(c, http.StatusServiceUnavailable, "remote_unavailable", err)
    return
  }
  status := "complete"
  if len(unmerged) > 0 {
    status = "partial"
  }
  RespondOK(c, gin.H{"status": status, "unlocked": unlocked, "unmerged": unmerged})
}

func identityFrom(rd *requestdata.RequestData) *types.Identity {
  if rd == nil || rd.UserID == uuid.Nil {
    return nil
  }
  return &types.Identity{UserID: rd.UserID}
}

package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/reefspotter/backend/internal/requestdata"
  "github.com/reefspotter/backend/internal/services"
  "github.com/reefspotter/backend/internal/types"
)

type ProgressHandler struct {
  catalogService services.CatalogService
  unlockService  services.UnlockService
}

func NewProgressHandler(catalogService services.CatalogService, unlockService services.UnlockService) *ProgressHandler {
  return &ProgressHandler{catalogService: catalogService, unlockService: unlockService}
}

func (ph *ProgressHandler) Get(c *gin.Context) {
  tag, ok := types.ParseFilterTag(c.Query("filter"))
  if !ok {
    RespondError(c, http.StatusBadRequest, "bad_filter", errors.New("unknown filter tag"))
    return
  }

  species, err := ph.catalogService.ListSpecies(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusServiceUnavailable, "catalog_unavailable", err)
    return
  }
  filtered := ph.catalogService.FilterSpecies(species, tag)

  rd := requestdata.GetRequestData(c.Request.Context())
  snapshot, _, err := ph.unlockService.Snapshot(c.Request.Context(), rd.SessionID, identityFrom(rd))
  if err != nil {
    if errors.Is(err, services.ErrRemoteUnavailable) {
      RespondError(c, http.StatusServiceUnavailable, "remote_unavailable", err)
      return
    }
    RespondError(c, http.StatusBadRequest, "progress_failed", err)
    return
  }

  unlockedInView := 0
  for _, s := range filtered {
    if snapshot[s.ID] {
      unlockedInView++
    }
  }
  RespondOK(c, gin.H{
    "filter":         tag,
    "species_count":  len(filtered),
    "unlocked_count": unlockedInView,
    "progress":       services.ProgressPercentage(filtered, snapshot),
  })
}

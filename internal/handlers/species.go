package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/reefspotter/backend/internal/services"
  "github.com/reefspotter/backend/internal/types"
)

type SpeciesHandler struct {
  catalogService services.CatalogService
}

func NewSpeciesHandler(catalogService services.CatalogService) *SpeciesHandler {
  return &SpeciesHandler{catalogService: catalogService}
}

func (sh *SpeciesHandler) List(c *gin.Context) {
  tag, ok := types.ParseFilterTag(c.Query("filter"))
  if !ok {
    RespondError(c, http.StatusBadRequest, "bad_filter", errors.New("unknown filter tag"))
    return
  }
  species, err := sh.catalogService.ListSpecies(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusServiceUnavailable, "catalog_unavailable", err)
    return
  }
  RespondOK(c, gin.H{
    "filter":  tag,
    "species": sh.catalogService.FilterSpecies(species, tag),
  })
}

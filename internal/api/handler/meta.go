package handler

import (
	"net/http"

	"github.com/dicearena/dicearena/internal/api/response"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/ability"
)

// MetaHandler serves the static catalogs: game modes and abilities
type MetaHandler struct {
	abilities ability.ServiceInterface
}

// NewMetaHandler creates a new meta handler
func NewMetaHandler(abilities ability.ServiceInterface) *MetaHandler {
	return &MetaHandler{abilities: abilities}
}

// Modes handles GET /api/v1/modes
func (h *MetaHandler) Modes(w http.ResponseWriter, r *http.Request) {
	modes := model.Modes()
	out := make([]response.Mode, len(modes))
	for i, m := range modes {
		out[i] = response.ModeFromModel(m)
	}
	response.JSON(w, http.StatusOK, out)
}

// Abilities handles GET /api/v1/abilities
func (h *MetaHandler) Abilities(w http.ResponseWriter, r *http.Request) {
	catalog := h.abilities.Catalog()
	out := make([]response.Ability, len(catalog))
	for i, a := range catalog {
		out[i] = response.AbilityFromModel(a)
	}
	response.JSON(w, http.StatusOK, out)
}

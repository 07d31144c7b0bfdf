package handlers

import (
	"github.com/gin-gonic/gin"

	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/http/v1/dto"
)

// InventoryEntryHandler handles /inventory-entries.
type InventoryEntryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryEntryHandler creates a new inventory entry handler.
func NewInventoryEntryHandler(base *BaseHandler, service *inventory.Service) *InventoryEntryHandler {
	return &InventoryEntryHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /inventory-entries
func (h *InventoryEntryHandler) List(c *gin.Context) {
	var q dto.MovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /inventory-entries/:id
func (h *InventoryEntryHandler) Get(c *gin.Context) {
	movementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	m, err := h.service.GetEntry(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// Create handles POST /inventory-entries/create
func (h *InventoryEntryHandler) Create(c *gin.Context) {
	var req dto.CreateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.CreateEntry(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// CreateExit handles POST /inventory-entries/create-exit
func (h *InventoryEntryHandler) CreateExit(c *gin.Context) {
	var req dto.CreateExitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.CreateManualExit(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// Update handles PUT /inventory-entries/edit
func (h *InventoryEntryHandler) Update(c *gin.Context) {
	var req dto.EditEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.EditEntry(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// Delete handles POST /inventory-entries/remove
func (h *InventoryEntryHandler) Delete(c *gin.Context) {
	var req dto.IDRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movementID, err := dto.ParseID("id", req.ID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RemoveEntry(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"id": movementID})
}

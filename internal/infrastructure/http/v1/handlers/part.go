package handlers

import (
	"github.com/gin-gonic/gin"

	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/http/v1/dto"
)

// PartHandler handles /parts.
type PartHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewPartHandler creates a new part handler.
func NewPartHandler(base *BaseHandler, service *inventory.Service) *PartHandler {
	return &PartHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /parts
func (h *PartHandler) List(c *gin.Context) {
	var q dto.PartListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.ListParts(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /parts/:id
func (h *PartHandler) Get(c *gin.Context) {
	partID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPart(c.Request.Context(), partID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Stock handles GET /parts/:id/stock
func (h *PartHandler) Stock(c *gin.Context) {
	partID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	level, err := h.service.GetStock(c.Request.Context(), partID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// Create handles POST /parts/create
func (h *PartHandler) Create(c *gin.Context) {
	var req dto.PartRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := req.ToEntity(false)
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.service.CreatePart(c.Request.Context(), p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created)
}

// Update handles PUT /parts/edit
func (h *PartHandler) Update(c *gin.Context) {
	var req dto.PartRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := req.ToEntity(true)
	if err != nil {
		h.Error(c, err)
		return
	}

	updated, err := h.service.UpdatePart(c.Request.Context(), p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// Delete handles POST /parts/remove
func (h *PartHandler) Delete(c *gin.Context) {
	var req dto.IDRequest
	if !h.BindJSON(c, &req) {
		return
	}
	partID, err := dto.ParseID("id", req.ID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.DeletePart(c.Request.Context(), partID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"id": partID})
}

// CheckAvailability handles POST /parts/check-availability
func (h *PartHandler) CheckAvailability(c *gin.Context) {
	var req dto.CheckAvailabilityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reqs, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), reqs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

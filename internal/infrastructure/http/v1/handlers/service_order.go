package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/id"
	"oficina/internal/domain/audit"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/http/v1/dto"
)

// AuditReader lists the change log of an entity of the caller's garage.
type AuditReader interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) (any, error)
}

// ServiceOrderHandler handles /service-orders.
type ServiceOrderHandler struct {
	*BaseHandler
	service *serviceorder.Service
	audit   AuditReader
}

// NewServiceOrderHandler creates a new service-order handler. auditReader may be nil.
func NewServiceOrderHandler(base *BaseHandler, service *serviceorder.Service, auditReader AuditReader) *ServiceOrderHandler {
	return &ServiceOrderHandler{
		BaseHandler: base,
		service:     service,
		audit:       auditReader,
	}
}

// List handles GET /service-orders
func (h *ServiceOrderHandler) List(c *gin.Context) {
	var q dto.ServiceOrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /service-orders/:id
func (h *ServiceOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Audit handles GET /service-orders/:id/audit
func (h *ServiceOrderHandler) Audit(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.service.Get(ctx, orderID); err != nil {
		h.Error(c, err)
		return
	}
	entries, err := h.audit.History(ctx, audit.EntityServiceOrder, orderID, 100)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

// Create handles POST /service-orders/create
func (h *ServiceOrderHandler) Create(c *gin.Context) {
	var req dto.CreateServiceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// Update handles PUT /service-orders/edit
func (h *ServiceOrderHandler) Update(c *gin.Context) {
	var req dto.UpdateServiceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Update(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Delete handles POST /service-orders/remove
func (h *ServiceOrderHandler) Delete(c *gin.Context) {
	orderID, ok := h.bindID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"id": orderID})
}

// UpdateStatus handles POST /service-orders/status/update
func (h *ServiceOrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	orderID, err := dto.ParseID("id", req.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	status, err := serviceorder.ParseStatus(req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.ChangeStatus(c.Request.Context(), orderID, status, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Diagnostic handles POST /service-orders/diagnostic
func (h *ServiceOrderHandler) Diagnostic(c *gin.Context) {
	var req dto.DiagnosticRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Diagnostic(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Complete handles POST /service-orders/complete
func (h *ServiceOrderHandler) Complete(c *gin.Context) {
	var req dto.CompleteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Complete(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Deliver handles POST /service-orders/deliver
func (h *ServiceOrderHandler) Deliver(c *gin.Context) {
	var req dto.DeliverRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Deliver(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// AddMechanicWork handles POST /service-orders/mechanic-work/add
func (h *ServiceOrderHandler) AddMechanicWork(c *gin.Context) {
	h.mechanicWork(c, false)
}

// UpdateMechanicWork handles POST /service-orders/mechanic-work/update
func (h *ServiceOrderHandler) UpdateMechanicWork(c *gin.Context) {
	h.mechanicWork(c, true)
}

func (h *ServiceOrderHandler) mechanicWork(c *gin.Context, update bool) {
	var req dto.MechanicWorkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(update)
	if err != nil {
		h.Error(c, err)
		return
	}

	var o *serviceorder.ServiceOrder
	if update {
		o, err = h.service.UpdateMechanicWork(c.Request.Context(), in)
	} else {
		o, err = h.service.AddMechanicWork(c.Request.Context(), in)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// VehicleHistory handles GET /service-orders/vehicle-history/:vehicleId
func (h *ServiceOrderHandler) VehicleHistory(c *gin.Context) {
	vehicleID, ok := h.ParamID(c, "vehicleId")
	if !ok {
		return
	}
	history, err := h.service.VehicleHistory(c.Request.Context(), vehicleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, history)
}

// ApproveBudget handles POST /service-orders/budget/approve
func (h *ServiceOrderHandler) ApproveBudget(c *gin.Context) {
	var req dto.BudgetDecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	orderID, err := dto.ParseID("id", req.ID)
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.ApproveBudget(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// RejectBudget handles POST /service-orders/budget/reject
func (h *ServiceOrderHandler) RejectBudget(c *gin.Context) {
	var req dto.BudgetDecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	orderID, err := dto.ParseID("id", req.ID)
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.RejectBudget(c.Request.Context(), orderID, req.NormalizedReason())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// GenerateApprovalLink handles POST /service-orders/budget/generate-approval-link
func (h *ServiceOrderHandler) GenerateApprovalLink(c *gin.Context) {
	var req dto.GenerateApprovalLinkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	orderID, err := dto.ParseID("serviceOrderId", req.ServiceOrderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	link, err := h.service.GenerateApprovalLink(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, link)
}

// ApprovalDetails handles the public GET /service-orders/budget/approval-details/:token
func (h *ServiceOrderHandler) ApprovalDetails(c *gin.Context) {
	details, err := h.service.ApprovalDetails(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, details)
}

// ApproveExternal handles the public POST /service-orders/budget/approve-external
func (h *ServiceOrderHandler) ApproveExternal(c *gin.Context) {
	var req dto.ExternalDecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.ApproveViaToken(c.Request.Context(), req.Token)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"id": o.ID, "orderNumber": o.OrderNumber, "status": o.Status})
}

// RejectExternal handles the public POST /service-orders/budget/reject-external
func (h *ServiceOrderHandler) RejectExternal(c *gin.Context) {
	var req dto.ExternalDecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.RejectViaToken(c.Request.Context(), req.Token, req.NormalizedReason())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"id": o.ID, "orderNumber": o.OrderNumber, "status": o.Status})
}

func (h *ServiceOrderHandler) bindID(c *gin.Context) (id.ID, bool) {
	var req dto.IDRequest
	if !h.BindJSON(c, &req) {
		return id.Nil(), false
	}
	v, err := dto.ParseID("id", req.ID)
	if err != nil {
		h.Error(c, err)
		return id.Nil(), false
	}
	return v, true
}

// RegisterRoutes registers the staff routes on protected and the
// token routes on public.
func (h *ServiceOrderHandler) RegisterRoutes(protected, public *gin.RouterGroup) {
	protected.GET("", h.List)
	protected.GET("/:id", h.Get)
	if h.audit != nil {
		protected.GET("/:id/audit", h.Audit)
	}
	protected.POST("/create", h.Create)
	protected.PUT("/edit", h.Update)
	protected.POST("/remove", h.Delete)
	protected.POST("/status/update", h.UpdateStatus)
	protected.POST("/diagnostic", h.Diagnostic)
	protected.POST("/complete", h.Complete)
	protected.POST("/deliver", h.Deliver)
	protected.POST("/mechanic-work/add", h.AddMechanicWork)
	protected.POST("/mechanic-work/update", h.UpdateMechanicWork)
	protected.GET("/vehicle-history/:vehicleId", h.VehicleHistory)
	protected.POST("/budget/approve", h.ApproveBudget)
	protected.POST("/budget/reject", h.RejectBudget)
	protected.POST("/budget/generate-approval-link", h.GenerateApprovalLink)

	public.GET("/budget/approval-details/:token", h.ApprovalDetails)
	public.POST("/budget/approve-external", h.ApproveExternal)
	public.POST("/budget/reject-external", h.RejectExternal)
}

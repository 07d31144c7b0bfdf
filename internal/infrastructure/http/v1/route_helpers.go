package v1

import (
	"github.com/gin-gonic/gin"
)

// CRUDRouteHandler is implemented by handlers exposing the standard
// list/get/create/edit/remove set.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// registerCRUDRoutes wires the standard routes of a resource group.
// Identifiers of mutations travel in the body, reads use the path.
func registerCRUDRoutes(rg *gin.RouterGroup, h CRUDRouteHandler) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/create", h.Create)
	rg.PUT("/edit", h.Update)
	rg.POST("/remove", h.Delete)
}

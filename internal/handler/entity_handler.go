package handler

import (
	"cmsbackend/internal/middleware"
	"cmsbackend/internal/service"
	"cmsbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

// Registrar mounts the routes of one entity under its name
type Registrar interface {
	Name() string
	RegisterRoutes(router *gin.RouterGroup)
}

// EntityHandler exposes the generic CRUD endpoints of one entity
type EntityHandler[T any] struct {
	svc service.EntityService[T]
}

func NewEntityHandler[T any](svc service.EntityService[T]) *EntityHandler[T] {
	return &EntityHandler[T]{svc: svc}
}

func (h *EntityHandler[T]) Name() string {
	return h.svc.Name()
}

// RegisterRoutes binds the endpoints to a group already mounted at /<entity>
func (h *EntityHandler[T]) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/create", h.Create)
	router.POST("/addBulk", h.AddBulk)
	router.POST("/list", h.List)
	router.POST("/count", h.Count)
	router.GET("/:id", h.Get)
	router.PUT("/update/:id", h.Update)
	router.PUT("/partial-update/:id", h.Update)
	router.PUT("/updateBulk", h.UpdateBulk)
	router.PUT("/softDelete/:id", h.SoftDelete)
	router.PUT("/softDeleteMany", h.SoftDeleteMany)
	router.DELETE("/delete/:id", h.Delete)
	router.POST("/deleteMany", h.DeleteMany)
}

// Create handles POST /<entity>/create
// @Summary      Create a record
// @Tags         entities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity   path      string  true  "Entity name"
// @Success      200      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /admin/{entity}/create [post]
func (h *EntityHandler[T]) Create(c *gin.Context) {
	var doc T
	if err := decodeDocument(c, &doc); err != nil {
		respond(c, response.Validation("Invalid values in parameters, "+err.Error()))
		return
	}
	created, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), &doc)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(created))
}

// AddBulk handles POST /<entity>/addBulk with body {data: [...]}
func (h *EntityHandler[T]) AddBulk(c *gin.Context) {
	var req service.BulkCreateRequest[T]
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, response.BadRequest(""))
		return
	}
	n, err := h.svc.CreateMany(c.Request.Context(), middleware.ActorFrom(c), req.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(gin.H{"count": n}))
}

// List handles POST /<entity>/list
// @Summary      Query records
// @Description  Filtered, paginated query. isCountOnly returns only the total.
// @Tags         entities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity   path      string               true  "Entity name"
// @Param        payload  body      service.ListRequest  false "Query and options"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/{entity}/list [post]
func (h *EntityHandler[T]) List(c *gin.Context) {
	var req service.ListRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respond(c, response.Validation(err.Error()))
		return
	}
	ctx := c.Request.Context()
	if req.IsCountOnly {
		total, err := h.svc.Count(ctx, req.Query)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, response.Success(gin.H{"totalRecords": total}))
		return
	}

	page, err := h.svc.List(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(page.Data) == 0 {
		respond(c, response.NotFound())
		return
	}
	respond(c, response.Success(page))
}

// Count handles POST /<entity>/count with body {where}
func (h *EntityHandler[T]) Count(c *gin.Context) {
	var req service.CountRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respond(c, response.Validation(err.Error()))
		return
	}
	n, err := h.svc.Count(c.Request.Context(), req.Where)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(gin.H{"count": n}))
}

// Get handles GET /<entity>/:id
// @Summary      Get a record
// @Tags         entities
// @Produce      json
// @Security     BearerAuth
// @Param        entity   path      string  true  "Entity name"
// @Param        id       path      string  true  "Record ID"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/{entity}/{id} [get]
func (h *EntityHandler[T]) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	doc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(doc))
}

// Update handles PUT /<entity>/update/:id and /<entity>/partial-update/:id
func (h *EntityHandler[T]) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond(c, response.Validation("Invalid values in parameters, "+err.Error()))
		return
	}
	doc, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(doc))
}

// UpdateBulk handles PUT /<entity>/updateBulk with body {filter, data}
func (h *EntityHandler[T]) UpdateBulk(c *gin.Context) {
	var req service.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, response.BadRequest(""))
		return
	}
	n, err := h.svc.UpdateMany(c.Request.Context(), middleware.ActorFrom(c), req.Filter, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	if n == 0 {
		respond(c, response.NotFound())
		return
	}
	respond(c, response.Success(gin.H{"count": n}))
}

// SoftDelete handles PUT /<entity>/softDelete/:id
func (h *EntityHandler[T]) SoftDelete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	doc, err := h.svc.SoftDelete(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(doc))
}

// SoftDeleteMany handles PUT /<entity>/softDeleteMany with body {ids}
func (h *EntityHandler[T]) SoftDeleteMany(c *gin.Context) {
	var req service.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, response.BadRequest(""))
		return
	}
	n, err := h.svc.SoftDeleteMany(c.Request.Context(), middleware.ActorFrom(c), req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	if n == 0 {
		respond(c, response.NotFound())
		return
	}
	respond(c, response.Success(gin.H{"count": n}))
}

// Delete handles DELETE /<entity>/delete/:id
// @Summary      Delete a record
// @Description  Hard delete; dependent rows are removed in the same transaction
// @Tags         entities
// @Produce      json
// @Security     BearerAuth
// @Param        entity   path      string  true  "Entity name"
// @Param        id       path      string  true  "Record ID"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/{entity}/delete/{id} [delete]
func (h *EntityHandler[T]) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	doc, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, response.Success(doc))
}

// DeleteMany handles POST /<entity>/deleteMany with body {ids}
func (h *EntityHandler[T]) DeleteMany(c *gin.Context) {
	var req service.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, response.BadRequest(""))
		return
	}
	n, err := h.svc.DeleteMany(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	if n == 0 {
		respond(c, response.NotFound())
		return
	}
	respond(c, response.Success(gin.H{"count": n}))
}

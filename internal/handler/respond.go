package handler

import (
	"errors"
	"io"

	"cmsbackend/internal/apperr"
	"cmsbackend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/codec/json"
	"github.com/google/uuid"
)

func respond(c *gin.Context, body response.Response) {
	c.JSON(response.HTTPStatus(body.Status), body)
}

// respondError maps the error taxonomy onto envelopes. Duplicate keys are
// reported as validation errors.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respond(c, response.Validation(apperr.Message(err)))
	case errors.Is(err, apperr.ErrDuplicate):
		respond(c, response.Validation("Record already exists with the given unique values"))
	case errors.Is(err, apperr.ErrNotFound):
		respond(c, response.NotFound())
	case errors.Is(err, apperr.ErrUnauthorized):
		respond(c, response.Unauthorized(apperr.Message(err)))
	case errors.Is(err, apperr.ErrForbidden):
		respond(c, response.Forbidden(apperr.Message(err)))
	default:
		respond(c, response.ServerError(err.Error()))
	}
}

// bindOptionalJSON binds the body when there is one
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// decodeDocument reads a document body without running binding tags; the
// entity service validates documents after normalizing them
func decodeDocument(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil {
		return io.EOF
	}
	return json.API.NewDecoder(c.Request.Body).Decode(obj)
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond(c, response.Validation("invalid objectId."))
		return uuid.Nil, false
	}
	return id, true
}

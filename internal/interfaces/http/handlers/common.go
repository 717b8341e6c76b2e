// Package handlers implements the HTTP query surface. Handlers translate
// requests into application service calls and errors into responses through
// middleware.WriteError.
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

var validate = validator.New()

// pathUUID parses the named path parameter. On failure the response is
// already written and ok is false.
func pathUUID(c *gin.Context, name string) (id uuid.UUID, ok bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.WriteError(c, errors.InvalidParam(name+" must be a UUID").WithDetail(raw))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes and validates the request body into dst.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.WriteError(c, errors.InvalidParam("invalid request body").WithDetail(err.Error()))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		middleware.WriteError(c, errors.InvalidParam("invalid request body").WithDetail(err.Error()))
		return false
	}
	return true
}

// queryFloat returns nil when the parameter is absent.
func queryFloat(c *gin.Context, name string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		middleware.WriteError(c, errors.InvalidParam(name+" must be a number").WithDetail(raw))
		return nil, false
	}
	return &v, true
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		middleware.WriteError(c, errors.InvalidParam(name+" must be a boolean").WithDetail(raw))
		return false, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		middleware.WriteError(c, errors.InvalidParam(name+" must be a non-negative integer").WithDetail(raw))
		return 0, false
	}
	return v, true
}

//Personal.AI order the ending

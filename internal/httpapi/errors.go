package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"yamdb/internal/apperr"
)

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"field": [...]} when it carries field errors and
// {"detail": "..."} otherwise. Internal errors are logged and not exposed.
func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("internal error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}

	status := statusOf(ae.Kind)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	}
	if len(ae.Fields) > 0 {
		c.AbortWithStatusJSON(status, ae.Fields)
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": ae.Message})
}

// bindJSON decodes the request body into dst. Malformed bodies and type
// mismatches are reported as validation errors.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		writeError(c, apperr.FieldError(typeErr.Field, fmt.Sprintf("Incorrect type. Expected %s.", typeErr.Type)))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		writeError(c, apperr.Validation("JSON parse error"))
	case errors.Is(err, io.EOF):
		writeError(c, apperr.Validation("request body is empty"))
	default:
		writeError(c, apperr.Validation(err.Error()))
	}
	return false
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/internal/mirror"
)

// Error keys produced by the transport layer itself
const (
	keyBodyInvalid  = "bodyinvalid"
	keyValidation   = "validation"
	keyIDInvalid    = "idinvalid"
	keyPageInvalid  = "pageinvalid"
	keyQueryMissing = "querynull"
)

// ErrorResponse is the machine readable error body
type ErrorResponse struct {
	Title      string `json:"title"`
	Status     int    `json:"status"`
	EntityName string `json:"entityName,omitempty"`
	ErrorKey   string `json:"errorKey"`
	Message    string `json:"message"`
	Params     string `json:"params,omitempty"`
}

// statusFor maps a coordinator error kind to an HTTP status
func statusFor(kind mirror.Kind) int {
	switch kind {
	case mirror.KindInvalidArgument:
		return http.StatusBadRequest
	case mirror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an error response with failure alert headers
func (s *Server) writeError(c *gin.Context, entityName string, err error) {
	var merr *mirror.Error
	if !errors.As(err, &merr) {
		merr = mirror.Unhandled(entityName, mirror.KeyInternal, err)
	}
	if merr.EntityName == "" {
		merr.EntityName = entityName
	}

	status := statusFor(merr.Kind)
	title := merr.Message
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("entity", merr.EntityName).
			Str("path", c.Request.URL.Path).
			Msg("Unhandled error")
		title = http.StatusText(status)
	}

	s.failureAlert(c, merr.EntityName, merr.Key)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Title:      title,
		Status:     status,
		EntityName: merr.EntityName,
		ErrorKey:   merr.Key,
		Message:    "error." + merr.Key,
		Params:     merr.EntityName,
	})
}

// badRequest writes a 400 built by the transport layer
func (s *Server) badRequest(c *gin.Context, entityName, message, key string) {
	s.writeError(c, entityName, mirror.InvalidArgument(entityName, message, key))
}

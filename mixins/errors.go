package mixins

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/thisissoon/velox/pkg/apierr"
)

var (
	// ErrNotImplemented marks a view missing a required attribute.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnknownField marks a lookup or column naming no model field.
	ErrUnknownField = errors.New("unknown field")
)

// NotImplemented wraps ErrNotImplemented with a description of what is
// missing, e.g. NotImplemented("template attribute is not defined").
func NotImplemented(what string) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, what)
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// StatusOf maps err to the HTTP status a view responds with.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrNotImplemented):
		return http.StatusInternalServerError
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	}
	return apierr.StatusOf(err, http.StatusInternalServerError)
}

// Abort writes err as the response and stops the handler chain. Clients
// asking for JSON get an error envelope, everyone else plain text.
func Abort(c *gin.Context, err error) {
	status := StatusOf(err)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	code := ""
	var ae *apierr.Error
	if errors.As(err, &ae) {
		code = ae.Code
	} else if errors.Is(err, ErrNotImplemented) {
		code = "not_implemented"
	}
	if c.NegotiateFormat(gin.MIMEPlain, gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.AbortWithStatusJSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
		return
	}
	c.Abort()
	c.String(status, msg)
}

// Fail logs err against the request and aborts with it.
func Fail(r *Request, err error) {
	status := StatusOf(err)
	log := r.Log.With("path", r.C.FullPath(), "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("view failed", "error", err)
	} else {
		log.Debug("view aborted", "error", err)
	}
	Abort(r.C, err)
}

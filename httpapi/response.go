package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Messages produced by the HTTP layer itself.
const (
	MsgInvalidBody      = "Invalid request body"
	MsgInvalidID        = "Invalid id"
	MsgNotFound         = "Resource not found"
	MsgMethodNotAllowed = "Method not allowed"
)

type envelope struct {
	Error   *string `json:"error"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

var validate = validator.New()

func writeOK(w http.ResponseWriter, r *http.Request, status int, msg string, data any) {
	render.Status(r, status)
	render.JSON(w, r, envelope{Message: &msg, Data: data})
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, envelope{Error: &msg})
}

// writeError renders err with the status of its kind. Internal errors never
// expose more than the generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := storefront.KindOf(err)
	writeMessage(w, r, storefront.StatusOf(kind), storefront.MessageOf(err))
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return storefront.BadRequest(MsgInvalidBody)
	}
	if err := validate.Struct(dst); err != nil {
		return storefront.BadRequest(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return MsgInvalidBody
	}
	fe := fields[0]
	name := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, storefront.BadRequest(MsgInvalidID)
	}
	return id, nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusNotFound, MsgNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

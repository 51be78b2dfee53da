package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/service"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields,omitempty"`
	Detail string               `json:"detail,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// responder turns service errors into HTTP responses. Unexpected errors are logged and, in
// development only, echoed back in the detail field.
type responder struct {
	log *logger.Logger
	dev bool
}

func (rs responder) error(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, service.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCoversDisabled):
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		rs.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"requestId", chimw.GetReqID(r.Context()),
			"error", err,
		)
		body := errorBody{Error: "an unexpected error occurred"}
		if rs.dev {
			body.Detail = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

// decodeJSON reads a JSON body into v, answering 400 itself when that fails. A field of the
// wrong type is reported like any other validation failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "validation failed",
			Fields: []service.FieldError{{Field: ute.Field, Message: typeMessage(ute)}},
		})
		return false
	}
	writeErrorMessage(w, http.StatusBadRequest, "invalid json")
	return false
}

func typeMessage(ute *json.UnmarshalTypeError) string {
	if ute.Field == "rating" {
		return "rating must be an integer between 1 and 5"
	}
	switch ute.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ute.Field + " must be an integer"
	case reflect.Float32, reflect.Float64:
		return ute.Field + " must be a number"
	case reflect.String:
		return ute.Field + " must be a string"
	case reflect.Bool:
		return ute.Field + " must be a boolean"
	}
	return ute.Field + " has the wrong type"
}

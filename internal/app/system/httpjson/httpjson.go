// internal/app/system/httpjson/httpjson.go

// Package httpjson writes and reads the JSON bodies of the REST surface.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
)

// MaxBody caps request bodies.
const MaxBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Write encodes v with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { Write(w, http.StatusOK, v) }

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Status  int    `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error writes err with the status its kind maps to.
func Error(w http.ResponseWriter, err error) {
	k := apperr.KindOf(err)
	status := apperr.HTTPStatus(k)
	Write(w, status, ErrorBody{
		Status:  status,
		Kind:    string(k),
		Message: apperr.Message(err),
	})
}

// Decode reads a JSON body into dst and runs struct validation on it.
// Unknown fields are rejected. Failures come back as apperr Invalid.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("decode", "request body is empty")
		}
		return apperr.Invalid("decode", "malformed JSON: %v", err)
	}
	return Validate(dst)
}

// Validate runs go-playground validation tags on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return apperr.Invalid("validate", "%s", strings.Join(msgs, "; "))
	}
	return apperr.Invalid("validate", "%v", err)
}

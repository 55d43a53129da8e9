package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	configureValidator(validate)
}

type Struct any

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// AuthError renders authentication failures: {"error": message}
func AuthError(w http.ResponseWriter, message string) {
	JSONWithStatus(w, map[string]string{"error": message}, http.StatusUnauthorized)
}

// Fail renders user scoped failures (403, 404 and friends):
// {"success": false, "message": message}
func Fail(w http.ResponseWriter, message string, code int) {
	type failResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	JSONWithStatus(w, failResponse{Success: false, Message: message}, code)
}

func ServerError(w http.ResponseWriter) {
	JSONWithStatus(w, map[string]string{"error": "Internal server error"}, http.StatusInternalServerError)
}

// FieldErrors renders a validation failure: {"errors": {field: [messages...]}}
func FieldErrors(w http.ResponseWriter, fields map[string][]string) {
	type errorsResponse struct {
		Errors map[string][]string `json:"errors"`
	}

	JSONWithStatus(w, errorsResponse{Errors: fields}, http.StatusUnprocessableEntity)
}

// Render json decode error
func DecodeError(w http.ResponseWriter, err error) {
	var message string

	// Try to provide more specific error message based on error type
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		message = fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	JSONWithStatus(w, map[string]string{"error": message}, http.StatusBadRequest)
}

// ValidationErrors converts validator errors to the field keyed message map
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string][]string, len(errs))
	for _, fieldError := range errs {
		fields[fieldError.Field()] = append(fields[fieldError.Field()], fieldMessage(fieldError))
	}

	FieldErrors(w, fields)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

package api

import (
	"encoding/json"
	"net/http"

	aerrors "attnviz/pkg/errors"
)

// Response is the envelope of every JSON endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// WriteJSON writes data in a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorBody(w, status, &ErrorBody{Code: code, Message: message})
}

// WriteAttnError writes err with a status derived from its category.
// Errors that are not AttnErrors are reported as internal errors.
func WriteAttnError(w http.ResponseWriter, err error) {
	ae, ok := aerrors.AsAttnError(err)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeErrorBody(w, statusFor(ae), &ErrorBody{
		Code:        ae.Code,
		Message:     ae.Message,
		Context:     ae.Context,
		Suggestions: ae.Suggestions,
	})
}

func statusFor(ae *aerrors.AttnError) int {
	switch ae.Category {
	case aerrors.CategoryValidation, aerrors.CategoryCommand:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeErrorBody(w http.ResponseWriter, status int, body *ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: body})
}

// ReadJSON decodes the request body into target.
func ReadJSON(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

package common

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the standard envelope for every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries error details to the client.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo carries response metadata, currently pagination only.
type MetaInfo struct {
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// PaginationInfo describes the page window of a list response.
type PaginationInfo struct {
	Page  int `json:"page"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// RespondJSON writes data inside the standard envelope.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondPage writes a list response with pagination metadata.
func RespondPage(w http.ResponseWriter, status int, data interface{}, page, total, pages int) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta: &MetaInfo{Pagination: &PaginationInfo{
			Page:  page,
			Total: total,
			Pages: pages,
		}},
	})
}

// RespondError writes an error response in the standard envelope.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck // response already committed
}

// ParseJSONBody decodes a JSON request body with a size limit and strict
// field checking.
func ParseJSONBody(r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

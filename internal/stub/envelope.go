package stub

import (
	"encoding/json"
	"log"
	"net/http"
)

// errorDetail is the backend error envelope body.
type errorDetail struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Detail errorDetail `json:"detail"`
}

// fieldViolation is one entry of a request validation failure, shaped
// like the framework-level 422 the real backend emits.
type fieldViolation struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	jsonResponse(w, status, errorEnvelope{Detail: errorDetail{
		Error:   code,
		Message: message,
		Details: details,
	}})
}

// writeValidationError emits the 422 shape used for parameter bound
// and type violations: detail is an array, not the envelope object.
func writeValidationError(w http.ResponseWriter, violations ...fieldViolation) {
	jsonResponse(w, http.StatusUnprocessableEntity, map[string][]fieldViolation{
		"detail": violations,
	})
}

func queryViolation(param, msg, typ string) fieldViolation {
	return fieldViolation{Loc: []string{"query", param}, Msg: msg, Type: typ}
}

func bodyViolation(field, msg, typ string) fieldViolation {
	return fieldViolation{Loc: []string{"body", field}, Msg: msg, Type: typ}
}

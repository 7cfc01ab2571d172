package lead

import (
	"encoding/json"
	"fmt"
)

// AnalysisOutcome is the result of the best-effort analysis stage. Exactly one
// of the two shapes holds: a successful analysis with scores and the raw
// payload, or a failure carrying the reason and an error payload to persist.
type AnalysisOutcome struct {
	Scores  Scores
	Payload json.RawMessage
	Err     error
}

// Succeeded builds the outcome of a completed analysis.
func Succeeded(a Analysis) AnalysisOutcome {
	return AnalysisOutcome{Scores: a.Scores, Payload: a.Payload}
}

// Failed builds the outcome of an analysis that could not complete. Scores are
// all nil and the payload records the failure for later inspection.
func Failed(err error) AnalysisOutcome {
	return AnalysisOutcome{
		Payload: ErrorPayload(500, fmt.Sprintf("Analysis failed: %v", err)),
		Err:     err,
	}
}

// OK reports whether the analysis completed.
func (o AnalysisOutcome) OK() bool {
	return o.Err == nil
}

type errorPayload struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorPayload renders the {"error":{"code","message"}} document stored in
// place of an analysis response.
func ErrorPayload(code int, message string) json.RawMessage {
	raw, err := json.Marshal(errorPayload{Error: errorBody{Code: code, Message: message}})
	if err != nil {
		// Marshaling two scalar fields cannot fail.
		panic(err)
	}
	return raw
}

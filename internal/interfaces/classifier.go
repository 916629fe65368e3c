package interfaces

import "context"

// NoAPIAccess is written to a label cell when the classification backend
// rejects the credentials (401-class). It is deliberately distinguishable
// from an empty reply so operators can detect credential expiry without the
// row looking pending.
const NoAPIAccess = "No API Access"

// Classifier wraps a single-turn LLM text classification call.
//
// Classify never returns an error: any transport failure, non-success
// response, or unparseable body yields "" and the caller leaves the cell
// untouched. An authentication rejection yields NoAPIAccess. A successful
// call returns the trimmed reply verbatim with no interpretation.
type Classifier interface {
	Classify(ctx context.Context, prompt, text string) string
}

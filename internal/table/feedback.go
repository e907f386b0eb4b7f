package table

// FieldError attaches a message to one input of a row. An empty Field marks
// a row-level business error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Feedback is the caller's answer to a commit. A nil *Feedback (or one with
// no entries) means success. When several channels are populated they are
// applied in priority order: field errors first, else business errors, else
// the API error.
type Feedback struct {
	// FieldErrors are format problems attributable to single inputs.
	FieldErrors []FieldError

	// BusinessErrors are cross-entity rule violations, attached to the
	// row as a whole.
	BusinessErrors []string

	// APIError is a backend failure, surfaced as a transient global
	// notification rather than attached to an input.
	APIError string
}

// IsSuccess reports whether the feedback carries no error at all.
func (f *Feedback) IsSuccess() bool {
	return f == nil || (len(f.FieldErrors) == 0 && len(f.BusinessErrors) == 0 && f.APIError == "")
}

// Fields wraps field errors into a Feedback.
func Fields(errs ...FieldError) *Feedback {
	return &Feedback{FieldErrors: errs}
}

// Business wraps business-rule messages into a Feedback.
func Business(msgs ...string) *Feedback {
	return &Feedback{BusinessErrors: msgs}
}

// APIFailure wraps a backend error message into a Feedback.
func APIFailure(message string) *Feedback {
	return &Feedback{APIError: message}
}

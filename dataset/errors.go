package dataset

import "fmt"

// InconsistentLabelsError reports a subject whose label rows disagree, or a
// configuration that makes the label lookup ambiguous. It signals a broken
// dataset table and is never retried.
type InconsistentLabelsError struct {
	Subject string
	Reason  string
}

func (e *InconsistentLabelsError) Error() string {
	return fmt.Sprintf("inconsistent labels for subject %q: %s", e.Subject, e.Reason)
}

package training

import "fmt"

// MalformedBatchError reports a minibatch that violates the batch contract:
// missing keys, mismatched slice lengths, or a shape the pipeline cannot
// interpret. It indicates a bug in the data loading code, not bad data.
type MalformedBatchError struct {
	Reason string
}

func (e *MalformedBatchError) Error() string {
	return fmt.Sprintf("malformed batch: %s", e.Reason)
}

func malformedBatchf(format string, args ...interface{}) *MalformedBatchError {
	return &MalformedBatchError{Reason: fmt.Sprintf(format, args...)}
}

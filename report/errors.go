package report

import "fmt"

// DuplicateSubjectError reports a violated per-subject-per-hue uniqueness
// invariant in an input metrics file. It signals data corruption and is never
// retried.
type DuplicateSubjectError struct {
	Path    string
	Hue     string
	Subject string
}

func (e *DuplicateSubjectError) Error() string {
	return fmt.Sprintf("subject IDs should be unique, but found duplicate entries for subject %q (hue %q) in %s",
		e.Subject, e.Hue, e.Path)
}

// UnknownMetricError reports a request for a metric outside the reported
// enumeration. This is a programming error, not a data error.
type UnknownMetricError struct {
	Metric ReportedMetric
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %v", e.Metric)
}

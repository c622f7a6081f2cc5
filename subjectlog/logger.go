package subjectlog

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Logger buffers per-subject prediction records in memory during an epoch and
// appends them to a CSV file when flushed. Records are never mutated after
// being written; the file only ever grows.
//
// A Logger is constructed explicitly once the worker rank is known and passed
// into the aggregator that owns it. It is not safe for concurrent use; within
// a single worker all writes happen on the training-step goroutine.
type Logger struct {
	fs                  afero.Fs
	path                string
	crossValidationIdx  int
	records             []PredictionRecord
	headerAlreadyOnDisk bool
}

// NewLogger creates a per-subject logger writing to the given path. The
// cross-validation split index is stamped onto every record as a fixed
// column.
func NewLogger(fs afero.Fs, path string, crossValidationSplitIndex int) *Logger {
	return &Logger{
		fs:                 fs,
		path:               path,
		crossValidationIdx: crossValidationSplitIndex,
	}
}

// NewLoggerForRank creates a logger writing to dir/{base}.rank{rank}.
func NewLoggerForRank(fs afero.Fs, dir, base string, rank, crossValidationSplitIndex int) *Logger {
	path := filepath.Join(dir, FileNameForRank(base, rank))
	return NewLogger(fs, path, crossValidationSplitIndex)
}

// Path returns the file the logger writes to.
func (l *Logger) Path() string {
	return l.path
}

// Add buffers one record. The fixed cross-validation column is applied here
// so callers never have to carry it around.
func (l *Logger) Add(rec PredictionRecord) {
	rec.CrossValidationSplitIndex = l.crossValidationIdx
	l.records = append(l.records, rec)
}

// Pending returns the number of buffered, not yet flushed records.
func (l *Logger) Pending() int {
	return len(l.records)
}

// Flush appends all buffered records to the log file and clears the buffer.
// The CSV header is written only when the file is created.
func (l *Logger) Flush() error {
	exists, err := afero.Exists(l.fs, l.path)
	if err != nil {
		return errors.Wrapf(err, "checking subject log %s", l.path)
	}
	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening subject log %s", l.path)
	}
	defer f.Close()

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	if exists || l.headerAlreadyOnDisk {
		err = gocsv.MarshalCSVWithoutHeaders(&l.records, writer)
	} else {
		err = gocsv.MarshalCSV(&l.records, writer)
	}
	if err != nil {
		return errors.Wrapf(err, "writing subject log %s", l.path)
	}
	l.headerAlreadyOnDisk = true
	l.records = l.records[:0]
	return nil
}

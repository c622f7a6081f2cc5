package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Table is a loaded dataset table together with the directory its image
// paths are relative to. Rows are kept as raw string maps because the set of
// columns varies between datasets.
type Table struct {
	dir    string
	config Config
	rows   []map[string]string
}

// LoadTable reads dir/dataset.csv into a Table.
func LoadTable(fs afero.Fs, dir string, config Config) (*Table, error) {
	return LoadTableFile(fs, filepath.Join(dir, DefaultFileName), dir, config)
}

// LoadTableFile reads an arbitrary CSV file into a Table whose image paths
// resolve against dir.
func LoadTableFile(fs afero.Fs, csvPath, dir string, config Config) (*Table, error) {
	f, err := fs.Open(csvPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset table %s", csvPath)
	}
	defer f.Close()

	rows, err := gocsv.CSVToMaps(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing dataset table %s", csvPath)
	}
	return &Table{dir: dir, config: config, rows: rows}, nil
}

// NewTable builds a Table from already parsed rows. Used in tests and by
// callers that source the table from somewhere other than a CSV file.
func NewTable(rows []map[string]string, dir string, config Config) *Table {
	return &Table{dir: dir, config: config, rows: rows}
}

// hasColumn reports whether the table carries the named column. An empty
// table has no columns.
func (t *Table) hasColumn(name string) bool {
	if name == "" || len(t.rows) == 0 {
		return false
	}
	_, ok := t.rows[0][name]
	return ok
}

// ImagePaths returns the image files of one subject, joined onto the dataset
// directory. When image channels are configured and the table has a channel
// column, only rows of those channels are considered. An unknown subject
// yields an empty slice, not an error.
func (t *Table) ImagePaths(subjectID string) []string {
	channelFilter := len(t.config.ImageChannels) > 0 && t.hasColumn(t.config.ChannelColumn)
	var paths []string
	for _, row := range t.rows {
		if row[t.config.SubjectColumn] != subjectID {
			continue
		}
		if channelFilter && !contains(t.config.ImageChannels, row[t.config.ChannelColumn]) {
			continue
		}
		if p := row[t.config.ImageFileColumn]; p != "" {
			paths = append(paths, filepath.Join(t.dir, p))
		}
	}
	return paths
}

// LabelNames returns the class names a subject is labelled with. All label
// rows of the subject must agree on one raw value; a multi-label value lists
// positive class indices separated by "|", while a single-class dataset uses
// plain "0"/"1". Empty values mean no positive label.
func (t *Table) LabelNames(subjectID string) ([]string, error) {
	rows := t.rows
	if len(t.config.LabelChannels) > 0 && t.hasColumn(t.config.ChannelColumn) {
		if len(t.config.LabelChannels) > 1 {
			return nil, &InconsistentLabelsError{
				Subject: subjectID,
				Reason:  fmt.Sprintf("single label channel expected, got %d", len(t.config.LabelChannels)),
			}
		}
		filtered := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			if row[t.config.ChannelColumn] == t.config.LabelChannels[0] {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	var distinct []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		if row[t.config.SubjectColumn] != subjectID {
			continue
		}
		v := row[t.config.LabelValueColumn]
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			distinct = append(distinct, v)
		}
	}
	if len(distinct) == 0 {
		return nil, nil
	}
	if len(distinct) > 1 {
		return nil, &InconsistentLabelsError{
			Subject: subjectID,
			Reason:  fmt.Sprintf("expected the same label on every row, got %v", distinct),
		}
	}
	return t.classNamesForValue(subjectID, distinct[0])
}

// classNamesForValue maps one raw label value to class names.
func (t *Table) classNamesForValue(subjectID, value string) ([]string, error) {
	if value == "" || value == "0" {
		return nil, nil
	}
	if len(t.config.ClassNames) <= 1 {
		if value != "1" {
			return nil, &InconsistentLabelsError{
				Subject: subjectID,
				Reason:  fmt.Sprintf("single-class label must be 0 or 1, got %q", value),
			}
		}
		if len(t.config.ClassNames) == 1 {
			return []string{t.config.ClassNames[0]}, nil
		}
		return nil, &InconsistentLabelsError{Subject: subjectID, Reason: "no class names configured"}
	}

	parts := strings.Split(value, "|")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 0 || idx >= len(t.config.ClassNames) {
			return nil, &InconsistentLabelsError{
				Subject: subjectID,
				Reason:  fmt.Sprintf("label %q is not a valid class index list", value),
			}
		}
		names = append(names, t.config.ClassNames[idx])
	}
	return names, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Package dataset reads the dataset table that maps subjects to image files
// and ground-truth labels. The table layout is configurable because datasets
// name their columns differently; the defaults match the most common layout.
package dataset

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"github.com/mhartwell/clinimetrics/subjectlog"
)

// DefaultFileName is the canonical name of the dataset table inside a
// dataset directory.
const DefaultFileName = "dataset.csv"

// Config describes the column layout of a dataset table.
type Config struct {
	// SubjectColumn holds the subject identifier.
	SubjectColumn string `yaml:"subject_column"`
	// ImageFileColumn holds the image path, relative to the dataset dir.
	ImageFileColumn string `yaml:"image_file_column"`
	// ChannelColumn distinguishes multiple rows per subject. Optional.
	ChannelColumn string `yaml:"channel_column"`
	// ImageChannels restricts image lookups to these channels. Empty means
	// all rows carry images.
	ImageChannels []string `yaml:"image_channels"`
	// LabelChannels restricts label lookups to one channel. At most one
	// channel may be configured.
	LabelChannels []string `yaml:"label_channels"`
	// LabelValueColumn holds the raw label value.
	LabelValueColumn string `yaml:"label_value_column"`
	// ClassNames names the classes. Multi-label values index into this
	// slice; a single-class dataset uses only the first entry.
	ClassNames []string `yaml:"class_names"`
}

// DefaultConfig returns the column layout used when no configuration file is
// given.
func DefaultConfig() Config {
	return Config{
		SubjectColumn:    "subject",
		ImageFileColumn:  "filePath",
		ChannelColumn:    "channel",
		LabelValueColumn: "label",
		ClassNames:       []string{subjectlog.DefaultHue},
	}
}

// LoadConfig reads a YAML column configuration, overlaying it on the
// defaults so partial files only override what they mention.
func LoadConfig(fs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading dataset config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing dataset config %s", path)
	}
	return cfg, nil
}

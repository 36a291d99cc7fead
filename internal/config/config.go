// Package config carries the construction-time parameters shared by the
// lexer, compiler and VM: the surface dialect and the extension switches.
// Nothing in here is process-global; callers thread values through.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dialect selects the surface syntax: keyword tables, digit glyphs and
// punctuation aliases. Both dialects compile to the same bytecode.
type Dialect int

const (
	Latin Dialect = iota
	Arabic
)

func (d Dialect) String() string {
	switch d {
	case Arabic:
		return "arabic"
	default:
		return "latin"
	}
}

// ParseDialect accepts the long names and the two-letter forms.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "latin", "en", "":
		return Latin, nil
	case "arabic", "ar":
		return Arabic, nil
	}
	return Latin, fmt.Errorf("unknown dialect %q (want latin or arabic)", s)
}

// Extensions are the work-in-progress language features a session opts
// into. When Lists is off the subscript syntax is rejected at parse time;
// when Lambdas is off the lambda keyword is not recognized.
type Extensions struct {
	Lists   bool `yaml:"lists"`
	Lambdas bool `yaml:"lambdas"`
}

// FileName is the per-project configuration file looked up next to a
// compiled source file.
const FileName = "qalam.yaml"

// File is the on-disk project configuration.
type File struct {
	Dialect    string     `yaml:"dialect"`
	Extensions Extensions `yaml:"extensions"`
}

// Load reads a qalam.yaml. A missing file is not an error; the zero File
// is returned so flags can still apply on top.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// SourceFileExtensions are the recognized source file suffixes.
var SourceFileExtensions = []string{".qlm", ".qalam"}

// HasSourceExt reports whether path ends with a recognized source suffix.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

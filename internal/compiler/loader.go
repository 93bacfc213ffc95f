package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/chr/internal/ir"
)

// Format names a rule program format.
type Format string

const (
	// FormatAuto picks a format from the file extension, then the content.
	FormatAuto Format = "auto"
	// FormatInline is the one-rule-per-line CHR grammar.
	FormatInline Format = "inline"
	// FormatTabular is the tab-separated name/heads/guards/body format.
	FormatTabular Format = "tabular"
	// FormatCUE is a CUE document with rules and optional facts.
	FormatCUE Format = "cue"
)

// Formats lists the accepted --rules-format values.
var Formats = []Format{FormatAuto, FormatInline, FormatTabular, FormatCUE}

// ParseFormat validates a format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatAuto, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", &CompileError{
		Code:    ErrUnknownFormat,
		Message: fmt.Sprintf("unknown rules format %q: must be one of %v", s, Formats),
	}
}

// DetectFormat chooses a concrete format for a program.
//
// .cue files are CUE and .tsv/.tab files tabular. Otherwise the text is
// tabular when some line holds a tab and no line holds '<=>' or '==>'.
func DetectFormat(path string, src []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE
	case ".tsv", ".tab":
		return FormatTabular
	}

	text := string(src)
	if strings.Contains(text, "<=>") || strings.Contains(text, "==>") {
		return FormatInline
	}
	for _, line := range strings.Split(text, "\n") {
		if !isBlank(line) && strings.Contains(line, "\t") {
			return FormatTabular
		}
	}
	return FormatInline
}

// Compile compiles program text in the given format.
// The source name is used in error positions and for auto detection.
func Compile(src []byte, source string, format Format) (*ir.Program, error) {
	if format == FormatAuto || format == "" {
		format = DetectFormat(source, src)
	}

	switch format {
	case FormatCUE:
		return CompileCUE(src, source)
	case FormatTabular:
		rules, err := ParseTabular(string(src), source)
		if err != nil {
			return nil, err
		}
		return &ir.Program{Rules: rules}, nil
	case FormatInline:
		rules, err := ParseRules(string(src), source)
		if err != nil {
			return nil, err
		}
		return &ir.Program{Rules: rules}, nil
	default:
		_, err := ParseFormat(string(format))
		return nil, err
	}
}

// LoadProgram reads and compiles a rule file.
func LoadProgram(path string, format Format) (*ir.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Compile(src, path, format)
}

// LoadFacts reads and parses a fact file.
func LoadFacts(path string) ([]ir.Constraint, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	return ParseFacts(string(src), path)
}

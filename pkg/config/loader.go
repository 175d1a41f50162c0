package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultManifestNames are searched, in order, when no manifest path is given.
var DefaultManifestNames = []string{"site.cue", "site.yaml", "site.yml"}

// ValidationError represents a manifest problem with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the field path (e.g., "webHosting.waf.enabled").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ManifestError collects every problem found while loading one manifest.
type ManifestError struct {
	Source string
	Errors []ValidationError
}

func (e *ManifestError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid manifest %s: %s", e.Source, e.Errors[0])
	}
	lines := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		lines[i] = "  " + ve.String()
	}
	return fmt.Sprintf("invalid manifest %s: %d errors:\n%s", e.Source, len(e.Errors), strings.Join(lines, "\n"))
}

// Loader parses and validates site manifests. CUE and YAML manifests go
// through the same #Site schema and struct validation.
type Loader struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
	validator      *validator.Validate
}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	ctx := cuecontext.New()
	return &Loader{
		ctx:            ctx,
		schemaRegistry: NewSchemaRegistry(ctx),
		validator:      validator.New(),
	}
}

// FindManifest returns the first default manifest name present in dir.
func FindManifest(dir string) (string, error) {
	for _, name := range DefaultManifestNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no site manifest found in %s (looked for %s)", dir, strings.Join(DefaultManifestNames, ", "))
}

// Load reads and validates the manifest at path.
func (l *Loader) Load(ctx context.Context, path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return l.LoadBytes(ctx, path, content)
}

// LoadBytes validates manifest content. name selects the format by its
// extension (.cue, .yaml, .yml) and is used in error locations.
func (l *Loader) LoadBytes(ctx context.Context, name string, content []byte) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		val cue.Value
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		val, err = l.compileCUE(name, content)
	case ".yaml", ".yml":
		val, err = l.compileYAML(name, content)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	unified, err := l.schemaRegistry.Unify(SiteSchemaName, val)
	if err != nil {
		return nil, &ManifestError{Source: name, Errors: convertCUEErrors(err)}
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, &ManifestError{Source: name, Errors: []ValidationError{{
			File:    name,
			Message: fmt.Sprintf("failed to decode manifest: %v", err),
		}}}
	}

	if err := l.validator.Struct(&m); err != nil {
		return nil, &ManifestError{Source: name, Errors: convertValidatorErrors(name, err)}
	}

	return &m, nil
}

func (l *Loader) compileCUE(name string, content []byte) (cue.Value, error) {
	val := l.ctx.CompileBytes(content, cue.Filename(name))
	if err := val.Err(); err != nil {
		return cue.Value{}, &ManifestError{Source: name, Errors: convertCUEErrors(err)}
	}
	return val, nil
}

// compileYAML decodes YAML strictly into a Manifest and re-encodes it as
// CUE, so unknown keys fail early and the schema still applies.
func (l *Loader) compileYAML(name string, content []byte) (cue.Value, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return cue.Value{}, &ManifestError{Source: name, Errors: []ValidationError{{
			File:    name,
			Message: err.Error(),
		}}}
	}

	val := l.ctx.Encode(m)
	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return val, nil
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		var ve ValidationError
		if pos := errors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		ve.Path = strings.Join(e.Path(), ".")
		format, args := e.Msg()
		ve.Message = fmt.Sprintf(format, args...)
		validationErrors = append(validationErrors, ve)
	}

	return validationErrors
}

func convertValidatorErrors(name string, err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		return []ValidationError{{File: name, Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Namespace is "Manifest.Field.Sub"; drop the root type.
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		msg := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q validation (%s)", fe.Tag(), fe.Param())
		}
		out = append(out, ValidationError{File: name, Path: path, Message: msg})
	}
	return out
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

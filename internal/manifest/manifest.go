// Package manifest loads equipment manifests for bulk registration.
//
// A manifest is a CUE (or JSON) document with an "equipment" list. It is
// checked against an embedded CUE schema, then against rules CUE cannot
// express across fields.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/fieldreg/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Manifest is a validated list of equipment to register.
type Manifest struct {
	Path      string
	Equipment []ir.EquipmentAttributes
}

// Load reads and validates the manifest at path. Validation failures are
// returned as ValidationErrors.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse validates manifest source. filename is used in error positions.
func Parse(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fromCUE(ErrCodeSyntax, err)
	}
	if !v.LookupPath(cue.ParsePath("equipment")).Exists() {
		return nil, ValidationErrors{{
			Field:   "equipment",
			Message: "manifest has no equipment list",
			Code:    ErrCodeNoEquipment,
		}}
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeSchema, err)
	}

	var doc struct {
		Equipment []ir.EquipmentAttributes `json:"equipment"`
	}
	if err := unified.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if errs := validateEntries(doc.Equipment); len(errs) > 0 {
		return nil, errs
	}
	return &Manifest{Equipment: doc.Equipment}, nil
}

// Validate loads the manifest at path and returns every problem found.
// A nil slice means the manifest is valid.
func Validate(path string) ([]ValidationError, error) {
	_, err := Load(path)
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, nil
	}
	return nil, err
}

// fromCUE converts CUE errors, keeping their path and line.
func fromCUE(code string, err error) ValidationErrors {
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: cueMessage(e),
			Code:    code,
		}
		if ve.Field == "" {
			ve.Field = "manifest"
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			ve.Line = pos[0].Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "manifest", Message: err.Error(), Code: code})
	}
	return out
}

func cueMessage(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}

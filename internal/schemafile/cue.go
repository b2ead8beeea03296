package schemafile

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// documentSchema constrains CUE schema files. Definitions are closed, so
// misspelled keys are rejected.
const documentSchema = `
#Property: {
	name:         string
	type:         string
	item_type?:   string
	key_type?:    string
	default?:     _
	min?:         number | string
	max?:         number | string
	selection?:   [..._] | {[string]: _}
	suggested?:   [..._]
	reference?:   string
	read_only?:   bool
	visible?:     bool
	description?: string
	unit?:        string
	class?:       string
	struct?:      string
	enumeration?: string
}

#Field: {
	name:     string
	type:     string
	default?: _
}

#Document: {
	enumerations?: [...{
		name:   string
		values: [...string]
	}]
	structs?: [...{
		name:   string
		fields: [...#Field]
	}]
	classes?: [...{
		name:        string
		parent?:     string
		properties?: [...#Property]
	}]
}
`

// ParseCUE compiles a CUE document, validates it against the document
// schema and decodes it. filename is used in error positions.
func ParseCUE(filename string, data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(documentSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling document schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	// JSON is valid YAML, and the YAML decoder keeps integers and floats
	// apart, which JSON decoding into interfaces would not.
	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &doc, nil
}

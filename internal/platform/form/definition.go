package form

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed definition.schema.json
var definitionSchemaJSON []byte

const definitionSchemaURL = "https://practice.local/schemas/form-definition.schema.json"

var (
	definitionSchemaOnce sync.Once
	definitionSchema     *jsonschema.Schema
	definitionSchemaErr  error
)

func compiledDefinitionSchema() (*jsonschema.Schema, error) {
	definitionSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(definitionSchemaURL, bytes.NewReader(definitionSchemaJSON)); err != nil {
			definitionSchemaErr = fmt.Errorf("load definition schema: %w", err)
			return
		}
		definitionSchema, definitionSchemaErr = c.Compile(definitionSchemaURL)
	})
	return definitionSchema, definitionSchemaErr
}

// Definition is a complete form: its fields, the steps that partition them
// and the navigation policy between steps. A Definition is immutable once
// compiled and safe to share between sessions.
type Definition struct {
	ID         string           `yaml:"id" json:"id"`
	Resource   string           `yaml:"resource" json:"resource"`
	Title      string           `yaml:"title,omitempty" json:"title,omitempty"`
	Navigation Navigation       `yaml:"navigation,omitempty" json:"navigation"`
	Fields     []FieldSpec      `yaml:"fields" json:"fields"`
	Steps      []StepDefinition `yaml:"steps" json:"steps"`

	fields   map[string]*FieldSpec
	owner    map[string]int
	patterns map[string]*regexp.Regexp
	checks   map[string][]compiledCheck
	compiled bool
}

// LoadDefinition decodes a YAML form definition, checks the document shape
// and compiles it.
func LoadDefinition(data []byte) (*Definition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode form definition: %w", err)
	}
	if err := checkDocument(doc); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode form definition: %w", err)
	}
	if err := def.Compile(); err != nil {
		return nil, err
	}
	return &def, nil
}

// checkDocument validates the generic YAML document against the embedded
// definition schema. The document is passed through JSON first so numbers
// reach the validator as float64.
func checkDocument(doc any) error {
	schema, err := compiledDefinitionSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode form definition: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encode form definition: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("invalid form definition: %w", err)
	}
	return nil
}

// Compile indexes the definition and checks its internal consistency: every
// step field exists, every field belongs to exactly one step, patterns and
// cross-field checks compile.
func (d *Definition) Compile() error {
	if d.ID == "" {
		return fmt.Errorf("form definition: id is required")
	}
	if d.Resource == "" {
		return fmt.Errorf("form %s: resource is required", d.ID)
	}
	if d.Navigation == "" {
		d.Navigation = NavigationSequential
	}
	if d.Navigation != NavigationSequential && d.Navigation != NavigationFree {
		return fmt.Errorf("form %s: invalid navigation %q", d.ID, d.Navigation)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("form %s: at least one step is required", d.ID)
	}

	d.fields = make(map[string]*FieldSpec, len(d.Fields))
	d.owner = make(map[string]int, len(d.Fields))
	d.patterns = make(map[string]*regexp.Regexp)
	d.checks = make(map[string][]compiledCheck)

	for i := range d.Fields {
		f := &d.Fields[i]
		if _, dup := d.fields[f.Key]; dup {
			return fmt.Errorf("form %s: duplicate field %q", d.ID, f.Key)
		}
		d.fields[f.Key] = f
		if err := d.compileField(f, f.Key); err != nil {
			return err
		}
	}

	for i, step := range d.Steps {
		if step.ID == "" {
			return fmt.Errorf("form %s: step %d has no id", d.ID, i)
		}
		for _, key := range step.Fields {
			if _, ok := d.fields[key]; !ok {
				return fmt.Errorf("form %s: step %s references unknown field %q", d.ID, step.ID, key)
			}
			if prev, taken := d.owner[key]; taken {
				return fmt.Errorf("form %s: field %q owned by steps %s and %s", d.ID, key, d.Steps[prev].ID, step.ID)
			}
			d.owner[key] = i
		}
	}
	for key := range d.fields {
		if _, ok := d.owner[key]; !ok {
			return fmt.Errorf("form %s: field %q is not owned by any step", d.ID, key)
		}
	}

	d.compiled = true
	return nil
}

func (d *Definition) compileField(f *FieldSpec, path string) error {
	switch f.Kind {
	case KindString, KindNumber, KindDate, KindEnum, KindBoolean:
	case KindArray, KindObject:
		if len(f.Fields) == 0 {
			return fmt.Errorf("form %s: %s field %q needs child fields", d.ID, f.Kind, path)
		}
	default:
		return fmt.Errorf("form %s: field %q has invalid kind %q", d.ID, path, f.Kind)
	}
	if f.Kind == KindEnum && len(f.Enum) == 0 {
		return fmt.Errorf("form %s: enum field %q has no values", d.ID, path)
	}
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return fmt.Errorf("form %s: field %q pattern: %w", d.ID, path, err)
		}
		d.patterns[path] = re
	}
	for _, chk := range f.Checks {
		cc, err := compileCheck(chk)
		if err != nil {
			return fmt.Errorf("form %s: field %q check: %w", d.ID, path, err)
		}
		d.checks[path] = append(d.checks[path], cc)
	}

	seen := make(map[string]bool, len(f.Fields))
	for i := range f.Fields {
		child := &f.Fields[i]
		if seen[child.Key] {
			return fmt.Errorf("form %s: duplicate field %q in %q", d.ID, child.Key, path)
		}
		seen[child.Key] = true
		if err := d.compileField(child, path+"."+child.Key); err != nil {
			return err
		}
	}
	return nil
}

// Field resolves a dotted key ("address.city", "items.quantity") to its spec.
func (d *Definition) Field(key string) (*FieldSpec, bool) {
	parts := strings.Split(key, ".")
	f, ok := d.fields[parts[0]]
	if !ok {
		return nil, false
	}
	for _, p := range parts[1:] {
		if f, ok = f.Child(p); !ok {
			return nil, false
		}
	}
	return f, true
}

// StepKeys returns the field keys owned by step index i.
func (d *Definition) StepKeys(i int) []string {
	if i < 0 || i >= len(d.Steps) {
		return nil
	}
	return d.Steps[i].Fields
}

// StepOf returns the index of the step owning the top-level key.
func (d *Definition) StepOf(key string) (int, bool) {
	top, _, _ := strings.Cut(key, ".")
	i, ok := d.owner[top]
	return i, ok
}

// Keys returns every top-level field key in declaration order.
func (d *Definition) Keys() []string {
	keys := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func (d *Definition) pattern(path string) *regexp.Regexp { return d.patterns[path] }

func (d *Definition) checksFor(path string) []compiledCheck { return d.checks[path] }

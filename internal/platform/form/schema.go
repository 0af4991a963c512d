// Package form holds the declarative field schema of a practice form, the
// in-memory snapshot of its values, and the validator that checks a snapshot
// against the schema.
package form

// Kind is the value kind of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindDate    Kind = "date"
	KindEnum    Kind = "enum"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Formats refine the type check of a field.
const (
	FormatEmail   = "email"
	FormatPhone   = "phone"
	FormatPercent = "percent"
	FormatInteger = "integer"
	FormatTime    = "time"
)

// Navigation selects how a form's steps may be visited.
type Navigation string

const (
	// NavigationSequential gates forward progress on the validity of each step.
	NavigationSequential Navigation = "sequential"
	// NavigationFree lets any step be opened at any time (tabbed forms).
	NavigationFree Navigation = "free"
)

// Constraints bound the accepted value of a field. Min/Max apply to numbers,
// MinLength/MaxLength to string lengths and to the number of rows of an
// array field.
type Constraints struct {
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	MinLength *int     `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength *int     `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Enum      []string `yaml:"enum,omitempty" json:"enum,omitempty"`
}

// CrossCheck is a boolean CEL expression evaluated after the field passed its
// own rules. The variables `form` (the whole snapshot), `row` (the enclosing
// row of an array field, empty elsewhere) and `value` (the field value) are in
// scope.
type CrossCheck struct {
	Expr    string `yaml:"expr" json:"expr"`
	Message string `yaml:"message" json:"message"`
}

// FieldSpec describes a single form field.
type FieldSpec struct {
	Key             string       `yaml:"key" json:"key"`
	Label           string       `yaml:"label,omitempty" json:"label,omitempty"`
	Kind            Kind         `yaml:"kind" json:"kind"`
	Required        bool         `yaml:"required,omitempty" json:"required,omitempty"`
	Default         any          `yaml:"default,omitempty" json:"default,omitempty"`
	Format          string       `yaml:"format,omitempty" json:"format,omitempty"`
	Constraints     `yaml:",inline"`
	Fields          []FieldSpec  `yaml:"fields,omitempty" json:"fields,omitempty"`
	DependentFields []string     `yaml:"dependentFields,omitempty" json:"dependentFields,omitempty"`
	Checks          []CrossCheck `yaml:"checks,omitempty" json:"checks,omitempty"`
	Derived         bool         `yaml:"derived,omitempty" json:"derived,omitempty"`
}

// DisplayName returns the label used in validation messages.
func (f *FieldSpec) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// Child returns the nested field spec with the given key.
func (f *FieldSpec) Child(key string) (*FieldSpec, bool) {
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// StepDefinition names the subset of fields one step of a form owns.
type StepDefinition struct {
	ID     string   `yaml:"id" json:"id"`
	Label  string   `yaml:"label,omitempty" json:"label,omitempty"`
	Fields []string `yaml:"fields" json:"fields"`
}

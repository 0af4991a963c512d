package form

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation error codes.
const (
	CodeRequired  = "required"
	CodeType      = "type"
	CodeFormat    = "format"
	CodeMin       = "min"
	CodeMax       = "max"
	CodeMinLength = "min_length"
	CodeMaxLength = "max_length"
	CodePattern   = "pattern"
	CodeEnum      = "enum"
	CodeCheck     = "check"
	CodeRows      = "rows"
	CodeFields    = "fields"
	CodeUnknown   = "unknown"
)

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)
)

// Result is the outcome of validating one field. Fields inside array rows
// are keyed "<array>.<rowId>.<child>".
type Result struct {
	Key     string `json:"key"`
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Results is an ordered list of field results.
type Results []Result

// Valid reports whether every result passed.
func (rs Results) Valid() bool {
	for _, r := range rs {
		if !r.Valid {
			return false
		}
	}
	return true
}

// Invalid returns only the failing results.
func (rs Results) Invalid() Results {
	var out Results
	for _, r := range rs {
		if !r.Valid {
			out = append(out, r)
		}
	}
	return out
}

// Errors maps each failing key to its message.
func (rs Results) Errors() map[string]string {
	out := make(map[string]string)
	for _, r := range rs {
		if !r.Valid {
			out[r.Key] = r.Message
		}
	}
	return out
}

// ValidateAll checks every field of the definition.
func ValidateAll(def *Definition, s Snapshot) Results {
	return Validate(def, s, def.Keys())
}

// ValidateStep checks the fields owned by step i.
func ValidateStep(def *Definition, s Snapshot, i int) Results {
	return Validate(def, s, def.StepKeys(i))
}

// Validate checks the named top-level fields. Rules apply in order required,
// type and format, range and length, pattern, cross-field checks; the first
// failing rule decides the message. Unknown keys fail.
func Validate(def *Definition, s Snapshot, keys []string) Results {
	v := validator{def: def, form: s.Plain()}
	var out Results
	for _, key := range keys {
		f, ok := def.Field(key)
		if !ok {
			out = append(out, Result{Key: key, Code: CodeUnknown, Message: fmt.Sprintf("%s is not a field of this form", key)})
			continue
		}
		val, _ := s.Get(key)
		out = append(out, v.field(f, key, key, val, nil)...)
	}
	return out
}

type validator struct {
	def  *Definition
	form map[string]any
}

// field validates f and its children. key is the result key, path the spec
// path used for compiled patterns and checks.
func (v validator) field(f *FieldSpec, key, path string, val any, row map[string]any) Results {
	if isEmpty(val) {
		if f.Required {
			return Results{fail(key, CodeRequired, "%s is required", f.DisplayName())}
		}
		return Results{{Key: key, Valid: true}}
	}
	if code, msg := v.rules(f, path, val); code != "" {
		return Results{{Key: key, Code: code, Message: msg}}
	}

	var children Results
	switch f.Kind {
	case KindArray:
		for _, r := range val.(Rows) {
			plainRow := plainValue(map[string]any(r)).(map[string]any)
			for i := range f.Fields {
				child := &f.Fields[i]
				children = append(children, v.field(child, key+"."+r.ID()+"."+child.Key, path+"."+child.Key, r[child.Key], plainRow)...)
			}
		}
		if !children.Valid() {
			return append(Results{fail(key, CodeRows, "%s has invalid entries", f.DisplayName())}, children...)
		}
	case KindObject:
		m, _ := asMap(val)
		for i := range f.Fields {
			child := &f.Fields[i]
			children = append(children, v.field(child, key+"."+child.Key, path+"."+child.Key, m[child.Key], row)...)
		}
		if !children.Valid() {
			return append(Results{fail(key, CodeFields, "%s has invalid fields", f.DisplayName())}, children...)
		}
	}

	for _, chk := range v.def.checksFor(path) {
		if !chk.eval(v.form, row, val) {
			msg := chk.Message
			if msg == "" {
				msg = fmt.Sprintf("%s is invalid", f.DisplayName())
			}
			return append(Results{{Key: key, Code: CodeCheck, Message: msg}}, children...)
		}
	}
	return append(Results{{Key: key, Valid: true}}, children...)
}

// rules applies the field's own type, format and constraint rules to a
// non-empty value.
func (v validator) rules(f *FieldSpec, path string, val any) (string, string) {
	name := f.DisplayName()
	switch f.Kind {
	case KindString, KindEnum, KindDate:
		s, ok := val.(string)
		if !ok {
			return CodeType, fmt.Sprintf("%s must be text", name)
		}
		s = strings.TrimSpace(s)
		if code, msg := stringFormat(f, s); code != "" {
			return code, msg
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			return CodeEnum, fmt.Sprintf("%s must be one of %s", name, strings.Join(f.Enum, ", "))
		}
		n := utf8.RuneCountInString(s)
		if f.MinLength != nil && n < *f.MinLength {
			return CodeMinLength, fmt.Sprintf("%s must be at least %d characters", name, *f.MinLength)
		}
		if f.MaxLength != nil && n > *f.MaxLength {
			return CodeMaxLength, fmt.Sprintf("%s must be at most %d characters", name, *f.MaxLength)
		}
		if re := v.def.pattern(path); re != nil && !re.MatchString(s) {
			return CodePattern, fmt.Sprintf("%s has an invalid format", name)
		}
	case KindNumber:
		n, ok := val.(float64)
		if !ok {
			return CodeType, fmt.Sprintf("%s must be a number", name)
		}
		if f.Format == FormatInteger && n != math.Trunc(n) {
			return CodeFormat, fmt.Sprintf("%s must be a whole number", name)
		}
		if f.Min != nil && n < *f.Min {
			return CodeMin, fmt.Sprintf("%s must be at least %s", name, formatNumber(*f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return CodeMax, fmt.Sprintf("%s must be at most %s", name, formatNumber(*f.Max))
		}
	case KindBoolean:
		if _, ok := val.(bool); !ok {
			return CodeType, fmt.Sprintf("%s must be true or false", name)
		}
	case KindArray:
		rows, ok := val.(Rows)
		if !ok {
			return CodeType, fmt.Sprintf("%s must be a list", name)
		}
		if f.MinLength != nil && len(rows) < *f.MinLength {
			return CodeMinLength, fmt.Sprintf("%s needs at least %d entries", name, *f.MinLength)
		}
		if f.MaxLength != nil && len(rows) > *f.MaxLength {
			return CodeMaxLength, fmt.Sprintf("%s allows at most %d entries", name, *f.MaxLength)
		}
	case KindObject:
		if _, ok := asMap(val); !ok {
			return CodeType, fmt.Sprintf("%s must be an object", name)
		}
	}
	return "", ""
}

func stringFormat(f *FieldSpec, s string) (string, string) {
	name := f.DisplayName()
	if f.Kind == KindDate {
		if _, err := time.Parse(DateLayout, s); err != nil {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				return CodeFormat, fmt.Sprintf("%s must be a valid date", name)
			}
		}
		return "", ""
	}
	switch f.Format {
	case FormatEmail:
		if !emailRe.MatchString(s) {
			return CodeFormat, fmt.Sprintf("%s must be a valid email address", name)
		}
	case FormatPhone:
		if !phoneRe.MatchString(s) {
			return CodeFormat, fmt.Sprintf("%s must be a valid phone number", name)
		}
	case FormatTime:
		if _, err := time.Parse("15:04", s); err != nil {
			return CodeFormat, fmt.Sprintf("%s must be a valid time (HH:MM)", name)
		}
	}
	return "", ""
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case Rows:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func fail(key, code, format string, args ...any) Result {
	return Result{Key: key, Code: code, Message: fmt.Sprintf(format, args...)}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}

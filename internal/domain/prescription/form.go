package prescription

import (
	_ "embed"
	"fmt"

	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
)

//go:embed form.yaml
var formYAML []byte

// Form returns the tabbed prescription form.
func Form() (*forms.Entry, error) {
	def, err := form.LoadDefinition(formYAML)
	if err != nil {
		return nil, fmt.Errorf("prescription form: %w", err)
	}
	return &forms.Entry{Definition: def, Label: "Prescription"}, nil
}

//go:build property

package wizard

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/practice/practice/internal/platform/form"
)

func TestProperty_NextNeverAdvancesOnInvalidStep(t *testing.T) {
	def, err := form.LoadDefinition([]byte(wizardYAML))
	if err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("invalid step blocks Next", prop.ForAll(
		func(blank string) bool {
			c := New(def, "")
			s := form.NewSnapshot(def, map[string]any{"patientId": blank})
			before := c.Current()
			res, ok := c.Next(s)
			if res.Valid() {
				return ok && c.Current() == before+1
			}
			return !ok && c.Current() == before
		},
		gen.OneConstOf("", " ", "\t", "p-1"),
	))
	properties.TestingRun(t)
}

package form

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

func checkEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("form", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("value", cel.DynType),
		)
		if celEnvErr != nil {
			celEnvErr = fmt.Errorf("create CEL environment: %w", celEnvErr)
		}
	})
	return celEnv, celEnvErr
}

type compiledCheck struct {
	CrossCheck
	prg cel.Program
}

func compileCheck(chk CrossCheck) (compiledCheck, error) {
	env, err := checkEnv()
	if err != nil {
		return compiledCheck{}, err
	}
	ast, issues := env.Compile(chk.Expr)
	if issues != nil && issues.Err() != nil {
		return compiledCheck{}, fmt.Errorf("compile %q: %w", chk.Expr, issues.Err())
	}
	prg, err := env.Program(ast, cel.CostLimit(10000), cel.InterruptCheckFrequency(100))
	if err != nil {
		return compiledCheck{}, fmt.Errorf("program %q: %w", chk.Expr, err)
	}
	return compiledCheck{CrossCheck: chk, prg: prg}, nil
}

// eval reports whether the check holds. Evaluation errors and non-bool
// results count as failures. row is empty outside array rows.
func (c compiledCheck) eval(form, row map[string]any, value any) bool {
	if row == nil {
		row = map[string]any{}
	}
	out, _, err := c.prg.Eval(map[string]any{
		"form":  form,
		"row":   row,
		"value": plainValue(value),
	})
	if err != nil {
		return false
	}
	ok, isBool := out.Value().(bool)
	return isBool && ok
}

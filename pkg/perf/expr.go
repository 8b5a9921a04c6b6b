package perf

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

var exprEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("run", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
})

type exprProgram struct {
	source  string
	program cel.Program
}

func compileExpr(source string) (*exprProgram, error) {
	env, err := exprEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid expr %q: %w", source, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program for expr %q: %w", source, err)
	}
	return &exprProgram{source: source, program: program}, nil
}

// match evaluates the expression against a run. Evaluation errors, such as a
// reference to a missing field, count as no match.
func (p *exprProgram) match(d DisplayRow) bool {
	out, _, err := p.program.Eval(map[string]any{
		"run": exprVars(d),
	})
	if err != nil {
		return false
	}
	return out.Type() == types.BoolType && out.Value().(bool)
}

// exprVars exposes the raw fields, overridden by the coerced numerics and the
// derived label.
func exprVars(d DisplayRow) map[string]any {
	vars := d.Values()
	vars[FieldAvgTPS] = d.AvgTPS
	vars[FieldPeakTPS] = d.PeakTPS
	vars[FieldBaselineAvgTPS] = d.BaselineAvgTPS
	vars[FieldFailedTxnPct] = d.FailedTxnPct
	vars[FieldP95LatencyMs] = d.P95LatencyMs
	vars[FieldXLabel] = d.XLabel
	return vars
}

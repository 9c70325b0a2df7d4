// Package customfunc extends the scalar function library (§4.3,
// §Glossary "Function library") with caller-registered JavaScript
// functions, evaluated with goja the same way the teacher's orm module
// hosts scripted callbacks inside a goja.Runtime.
package customfunc

import (
	js "github.com/dop251/goja"

	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
)

// Registry holds scalar functions implemented as JavaScript source, each
// compiled once and invoked per row. It lets an integrator add
// organization-specific scalar functions without recompiling the
// compiler binary.
type Registry struct {
	vm        *js.Runtime
	functions map[string]js.Callable
	types     map[string]dvtypes.AttrType
}

// NewRegistry creates an empty registry with its own goja runtime.
func NewRegistry() *Registry {
	return &Registry{
		vm:        js.New(),
		functions: make(map[string]js.Callable),
		types:     make(map[string]dvtypes.AttrType),
	}
}

// Register compiles and registers a function under name. source must be a
// JavaScript expression that evaluates to a callable, e.g.
// "(function(a, b) { return a + b; })".
func (r *Registry) Register(name, source string, resultType dvtypes.AttrType) error {
	v, err := r.vm.RunString(source)
	if err != nil {
		return err
	}
	fn, ok := js.AssertFunction(v)
	if !ok {
		return &dvtypes.NotSupportedQueryFragmentError{Reason: "custom function source is not callable", Fragment: name}
	}
	r.functions[name] = fn
	r.types[name] = resultType
	return nil
}

// Has reports whether name is registered. The scalar lowerer in expr does
// not consult a Registry; an unknown name there raises UnknownFunction.
func (r *Registry) Has(name string) bool {
	_, ok := r.functions[name]
	return ok
}

// Lower builds an expr.Expr that invokes the named custom function with
// the given already-lowered argument expressions.
func (r *Registry) Lower(name string, args []expr.Expr) (expr.Expr, error) {
	fn, ok := r.functions[name]
	if !ok {
		return nil, &dvtypes.UnknownFunctionError{Name: name}
	}
	return &callExpr{registry: r, fn: fn, name: name, args: args, attrType: r.types[name]}, nil
}

type callExpr struct {
	registry *Registry
	fn       js.Callable
	name     string
	args     []expr.Expr
	attrType dvtypes.AttrType
}

func (c *callExpr) Type() dvtypes.AttrType { return c.attrType }

func (c *callExpr) Eval(row dvtypes.Row) (any, error) {
	argVals := make([]js.Value, len(c.args))
	for i, a := range c.args {
		v, err := a.Eval(row)
		if err != nil {
			return nil, err
		}
		argVals[i] = c.registry.vm.ToValue(v)
	}
	result, err := c.fn(js.Undefined(), argVals...)
	if err != nil {
		return nil, err
	}
	if js.IsNull(result) || js.IsUndefined(result) {
		return nil, nil
	}
	return result.Export(), nil
}

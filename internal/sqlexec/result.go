package sqlexec

// Result is the outcome of ExecuteWithBindings.
//
// Rows is set for queries. RowsAffected is the driver's affected-row count
// for DML, or the number of rows returned. Output values are only present
// when the statement actually produced them.
type Result struct {
	Rows         []Row
	RowsAffected int64
	outputs      map[string]Value
}

// Output returns the value produced for an output binding.
func (r *Result) Output(name string) (Value, bool) {
	if r == nil || r.outputs == nil {
		return Value{}, false
	}
	v, ok := r.outputs[normalizeName(name)]
	return v, ok
}

// Require is Output for callers that treat a missing value as failure.
func (r *Result) Require(name string) (Value, error) {
	v, ok := r.Output(name)
	if !ok {
		return Value{}, &NoValueProducedError{Name: normalizeName(name)}
	}
	return v, nil
}

// Outputs returns a copy of every produced output value.
func (r *Result) Outputs() map[string]Value {
	out := make(map[string]Value, len(r.outputs))
	for k, v := range r.outputs {
		out[k] = v
	}
	return out
}

func (r *Result) setOutput(name string, v Value) {
	if v.IsNull() {
		return
	}
	if r.outputs == nil {
		r.outputs = make(map[string]Value)
	}
	r.outputs[name] = v
}

package verify

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"
)

// evaluator compiles and caches FHIRPath expressions.
type evaluator struct {
	mu    sync.RWMutex
	cache map[string]*fhirpath.Expression
}

func newEvaluator() *evaluator {
	return &evaluator{cache: make(map[string]*fhirpath.Expression)}
}

// Evaluate evaluates expression against resource, which is raw JSON or any
// value encodable as JSON. The result follows FHIRPath truthiness: an empty
// collection is false, a single boolean is its value, anything else is true.
func (e *evaluator) Evaluate(expression string, resource any) (bool, error) {
	data, err := toJSON(resource)
	if err != nil {
		return false, fmt.Errorf("failed to convert resource to JSON: %w", err)
	}

	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return false, fmt.Errorf("failed to compile FHIRPath expression '%s': %w", expression, err)
	}

	result, err := compiled.Evaluate(data)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate FHIRPath expression '%s': %w", expression, err)
	}
	return toBool(result), nil
}

func (e *evaluator) getOrCompile(expression string) (*fhirpath.Expression, error) {
	e.mu.RLock()
	compiled, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()
	return compiled, nil
}

func toJSON(resource any) ([]byte, error) {
	switch v := resource.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

func toBool(result types.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}

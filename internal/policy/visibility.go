// Package policy decides which result view a caller role may receive.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"io"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"
)

//go:embed visibility.rego
var defaultModule string

// DefaultQuery is the rule that grants the internal view.
const DefaultQuery = "data.assessment.visibility.internal"

// Engine evaluates the prepared visibility query. It is safe for concurrent use.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the embedded policy.
func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineWithModule(ctx, "visibility.rego", defaultModule)
}

// LoadEngine prepares the policy at path, or the embedded one when path is empty.
func LoadEngine(ctx context.Context, fs afero.Fs, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx)
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy: %w", err)
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return NewEngineWithModule(ctx, path, string(content))
}

// NewEngineWithModule compiles module and prepares DefaultQuery against it.
func NewEngineWithModule(ctx context.Context, name, module string) (*Engine, error) {
	pq, err := rego.New(
		rego.Query(DefaultQuery),
		rego.Module(name, module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare visibility policy: %w", err)
	}
	return &Engine{query: pq}, nil
}

// AllowInternal reports whether role may see trait profile and sales narrative.
// An undefined or non-boolean result denies.
func (e *Engine) AllowInternal(ctx context.Context, role string) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{"role": role}))
	if err != nil {
		return false, fmt.Errorf("evaluate visibility policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}

// Package policy evaluates outbound destinations against a rego dial policy.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the dial policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the document the policy sees as `input`.
type Input struct {
	PhoneNumber string `json:"phone_number"`
	Context     string `json:"context"`
	Extension   string `json:"extension"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.dial_policy"),
		rego.Module("dial_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Load builds an engine from path, or from DefaultPolicy when path is empty.
func Load(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dial policy: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the decision (allow or block) and an optional reason.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	doc := map[string]interface{}{
		"phone_number": input.PhoneNumber,
		"context":      input.Context,
		"extension":    input.Extension,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return DecisionAllow, "unexpected return type", nil
	}
	decision, _ := obj["decision"].(string)
	reason, _ := obj["reason"].(string)
	if decision == "" {
		decision = DecisionAllow
	}
	return decision, reason, nil
}

// DefaultPolicy allows every destination. The engine does final number
// validation; operators restrict destinations with DIAL_POLICY_FILE.
const DefaultPolicy = `
package dial_policy

default decision = "allow"
`

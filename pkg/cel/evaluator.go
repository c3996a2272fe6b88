package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"argus/pkg/models"
)

// Evaluator compiles and runs spam rule expressions. Expressions see the
// envelope text, identity fields, posted_at and the raw metadata bag, so
// rules can combine text checks with structured signals
// (e.g. `metadata.forward_count > 10 && text.contains("t.me/")`).
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("source_id", cel.StringType),
		cel.Variable("message_id", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("posted_at", cel.TimestampType),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateRuleExpression additionally enforces a bool output, the only
// shape a spam rule may have.
func (e *Evaluator) ValidateRuleExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// EvaluateRule compiles and evaluates in one shot. The hot path uses
// CompileExpression once per reload and EvaluateProgram per message.
func (e *Evaluator) EvaluateRule(ctx context.Context, expression string, msg *models.MessageEnvelope) (bool, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return e.EvaluateProgram(ctx, program, msg)
}

// EvaluateProgram runs a previously compiled rule program against an envelope.
func (e *Evaluator) EvaluateProgram(ctx context.Context, program cel.Program, msg *models.MessageEnvelope) (bool, error) {
	result, _, err := program.ContextEval(ctx, e.envelopeVars(msg))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) CompileExpression(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) envelopeVars(msg *models.MessageEnvelope) map[string]interface{} {
	metadata := msg.RawMetadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return map[string]interface{}{
		"source_id":  msg.SourceID,
		"message_id": msg.MessageID,
		"text":       msg.Text,
		"posted_at":  msg.PostedAt,
		"metadata":   metadata,
	}
}

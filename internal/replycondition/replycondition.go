package replycondition

import (
	"fmt"

	"github.com/DIMO-Network/whatsapp-relay/internal/whatsapp"
	"github.com/google/cel-go/cel"
	celtypes "github.com/google/cel-go/common/types"
)

// PrepareCondition compiles a CEL expression over the variables sender, messageType and text and
// checks that it evaluates to a bool.
func PrepareCondition(celCondition string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("sender", cel.StringType),
		cel.Variable("messageType", cel.StringType),
		cel.Variable("text", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(celCondition)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("output type is not bool: %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to program CEL expression: %w", err)
	}
	return prg, nil
}

// EvaluateCondition reports whether the message satisfies the condition.
func EvaluateCondition(prg cel.Program, msg whatsapp.Message) (bool, error) {
	out, _, err := prg.Eval(map[string]any{
		"sender":      msg.From,
		"messageType": msg.Type,
		"text":        msg.Text,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL condition: %w", err)
	}
	return out.Type() == celtypes.BoolType && out.Value() == true, nil
}

// Condition decides whether an inbound message gets a reply.
type Condition struct {
	prg cel.Program
}

// New compiles expr. An empty expression allows every message.
func New(expr string) (*Condition, error) {
	if expr == "" {
		return &Condition{}, nil
	}
	prg, err := PrepareCondition(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reply condition: %w", err)
	}
	return &Condition{prg: prg}, nil
}

// Allow evaluates the condition against msg.
func (c *Condition) Allow(msg whatsapp.Message) (bool, error) {
	if c == nil || c.prg == nil {
		return true, nil
	}
	return EvaluateCondition(c.prg, msg)
}

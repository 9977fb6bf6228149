package browser

import (
	"context"
	"errors"
	"fmt"
)

// Strategy is one way of achieving an interaction
type Strategy struct {
	Name string
	Do   func(ctx context.Context) error
}

// FirstSuccess runs strategies in order and stops at the first one that
// succeeds, returning its name. When all fail the error wraps
// ErrStrategiesExhausted and every individual failure.
func FirstSuccess(ctx context.Context, strategies ...Strategy) (string, error) {
	errs := make([]error, 0, len(strategies))
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := s.Do(ctx)
		if err == nil {
			return s.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return "", fmt.Errorf("%w: %w", ErrStrategiesExhausted, errors.Join(errs...))
}

// ClickKind names a click technique
type ClickKind int

const (
	DirectClick ClickKind = iota
	ParentClick
	ScriptedClick
)

func (k ClickKind) String() string {
	switch k {
	case ParentClick:
		return "parent_click"
	case ScriptedClick:
		return "script_click"
	default:
		return "direct_click"
	}
}

// ClickStrategies builds click strategies for el in the given order
func ClickStrategies(el Element, order ...ClickKind) []Strategy {
	strategies := make([]Strategy, 0, len(order))
	for _, kind := range order {
		var do func(context.Context) error
		switch kind {
		case ParentClick:
			do = el.ClickParent
		case ScriptedClick:
			do = el.ScriptClick
		default:
			do = el.Click
		}
		strategies = append(strategies, Strategy{Name: kind.String(), Do: do})
	}
	return strategies
}

// EscalatingClick is the usual direct, ancestor, script order
var EscalatingClick = []ClickKind{DirectClick, ParentClick, ScriptedClick}

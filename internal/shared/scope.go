package shared

import (
	"context"
	"fmt"
	"strings"
)

// Scope carries the caller's division-level access for query construction.
// It is always passed explicitly; nothing reads it from ambient globals.
type Scope struct {
	User      string
	Admin     bool
	Divisions []string
}

type scopeContextKey struct{}

// ContextWithScope stores the scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope from context. The zero scope blocks
// every division-filtered query.
func ScopeFromContext(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(Scope)
	return scope
}

// DivisionCondition builds a SQL predicate limiting column to the scope's
// divisions. Admins get no predicate; a scope without divisions matches
// nothing.
func (s Scope) DivisionCondition(column string, argIndex int) (string, []any) {
	if s.Admin {
		return "", nil
	}
	if len(s.Divisions) == 0 {
		return "1=0", nil
	}
	placeholders := make([]string, len(s.Divisions))
	args := make([]any, len(s.Divisions))
	for i, div := range s.Divisions {
		placeholders[i] = fmt.Sprintf("$%d", argIndex+i)
		args[i] = div
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")), args
}

// AllowsDivision reports whether the scope can see the given division.
func (s Scope) AllowsDivision(division string) bool {
	if s.Admin {
		return true
	}
	for _, div := range s.Divisions {
		if div == division {
			return true
		}
	}
	return false
}

// Package vartable implements the hierarchical variable scope chain
// the event collector pushes and pops as it walks into groups,
// functions, loops and spawned blocks.
//
// The lookup/lock shape follows a guarded-map idiom (a mutex around a
// map) generalized from a flat global map to a parent-linked chain of
// scopes.
package vartable

import (
	"fmt"
	"sync"

	"github.com/devalang/core/internal/langtypes"
	"github.com/devalang/core/internal/statement"
)

// Binding kind controls mutation rules.
type Binding int

const (
	BindingLet Binding = iota
	BindingVar
	BindingConst
)

type entry struct {
	value   langtypes.Value
	binding Binding
}

// Table is one lexical scope. A Table's parent chain is searched on
// lookup miss; a child scope's Declare writes only the child, while
// Assign updates the nearest scope in the chain that declared the name.
type Table struct {
	mu     sync.RWMutex
	vars   map[string]entry
	parent *Table
}

// New creates a root scope with no parent.
func New() *Table {
	return &Table{vars: make(map[string]entry)}
}

// Child creates a new scope whose lookups fall through to t.
func (t *Table) Child() *Table {
	return &Table{vars: make(map[string]entry), parent: t}
}

// Declare introduces a new binding in this scope. Redeclaring an
// existing name in the same scope is allowed (shadow-free reassignment,
// matching how Let/Var re-execute across loop iterations), but
// redeclaring a Const is rejected.
func (t *Table) Declare(name string, v langtypes.Value, b Binding) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.vars[name]; ok && existing.binding == BindingConst {
		return fmt.Errorf("cannot redeclare const %q", name)
	}
	t.vars[name] = entry{value: v, binding: b}
	return nil
}

// Get resolves name against this scope then its parent chain.
func (t *Table) Get(name string) (langtypes.Value, bool) {
	t.mu.RLock()
	e, ok := t.vars[name]
	parent := t.parent
	t.mu.RUnlock()
	if ok {
		return e.value, true
	}
	if parent != nil {
		return parent.Get(name)
	}
	return langtypes.Null(), false
}

// Assign mutates the nearest scope in the chain that already declared
// name. Assigning to a Const or an undeclared name is an error — the
// collector turns this into a Diagnostic.
func (t *Table) Assign(name string, v langtypes.Value) error {
	t.mu.Lock()
	e, ok := t.vars[name]
	if ok {
		if e.binding == BindingConst {
			t.mu.Unlock()
			return fmt.Errorf("cannot assign to const %q", name)
		}
		e.value = v
		t.vars[name] = e
		t.mu.Unlock()
		return nil
	}
	parent := t.parent
	t.mu.Unlock()
	if parent != nil {
		return parent.Assign(name, v)
	}
	return fmt.Errorf("undeclared variable %q", name)
}

// Remove deletes a binding from this scope only — used by the For-loop
// implementation to restore a shadowed outer binding after the loop
// exits (save old value, remove/restore on exit).
func (t *Table) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.vars, name)
}

// FunctionDef is a user-declared Function statement's closure: its
// formal parameters, body and the scope it was declared in (for
// lexical — not dynamic — scoping of free variables).
type FunctionDef struct {
	Params []string
	Body   []statement.Statement
	Scope  *Table
}

// FunctionTable holds named function declarations, looked up by Call/
// Spawn/ArrowCall-to-user-function statements.
type FunctionTable struct {
	mu    sync.RWMutex
	funcs map[string]FunctionDef
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{funcs: make(map[string]FunctionDef)}
}

func (f *FunctionTable) Declare(name string, def FunctionDef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[name] = def
}

func (f *FunctionTable) Get(name string) (FunctionDef, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.funcs[name]
	return def, ok
}

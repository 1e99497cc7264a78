// Package frontend defines the contract between language front-ends and the
// dependence-graph engine. A front-end parses one translation unit, resolves
// identifiers to their declarations, and hands the engine a statement tree
// per function that mirrors the source's control structure.
package frontend

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by front-ends.
var (
	// ErrParse is returned when the source cannot be parsed.
	ErrParse = errors.New("parse error")

	// ErrFunctionNotFound is returned when the requested function has no body
	// in the parsed unit.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrUnsupportedLanguage is returned for files no front-end handles.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Language identifies the source language of a unit.
type Language string

const (
	LanguageC   Language = "c"
	LanguageCPP Language = "cpp"
	LanguageGo  Language = "go"
)

// Kind classifies a statement-level construct.
type Kind int

const (
	KindOther    Kind = iota // Statement with no control structure of its own
	KindAssign               // Statement whose main effect is writing variables
	KindBranch               // if/switch: Then and optional Else arms
	KindLoop                 // for/while/do/range: single Body entry
	KindCompound             // Block: ordered Stmts
)

func (k Kind) String() string {
	switch k {
	case KindAssign:
		return "assign"
	case KindBranch:
		return "branch"
	case KindLoop:
		return "loop"
	case KindCompound:
		return "compound"
	default:
		return "other"
	}
}

// Pos is a resolved source position. Offset is the byte offset in the
// translation unit and gives a total order over positions.
type Pos struct {
	Line   int `json:"line"`   // 1-based line
	Column int `json:"column"` // 1-based column
	Offset int `json:"offset"` // 0-based byte offset
}

// Before reports whether p comes before q in the unit.
func (p Pos) Before(q Pos) bool {
	return p.Offset < q.Offset
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Var is a variable identity: its name plus the byte offset of the
// declaration it resolves to. Decl is -1 for names declared outside the
// analyzed function (globals, enum constants, unresolved names).
type Var struct {
	Name string `json:"name"`
	Decl int    `json:"decl"`
}

func (v Var) String() string {
	if v.Decl < 0 {
		return v.Name
	}
	return fmt.Sprintf("%s@%d", v.Name, v.Decl)
}

// Stmt is one statement-level node of a function's syntax tree.
type Stmt struct {
	Kind    Kind
	Pos     Pos
	End     Pos
	Text    string // Full source text, whitespace collapsed
	Header  string // Branch/loop header text up to the first arm or body
	Defines []Var
	Uses    []Var

	Stmts []*Stmt // KindCompound: statements in source order
	Then  *Stmt   // KindBranch: arm taken when the condition holds
	Else  *Stmt   // KindBranch: optional other arm
	Body  *Stmt   // KindLoop: loop body entry
}

// Contains reports whether the position lies inside the statement's range.
func (s *Stmt) Contains(line, column int) bool {
	if line < s.Pos.Line || line > s.End.Line {
		return false
	}
	if line == s.Pos.Line && column < s.Pos.Column {
		return false
	}
	if line == s.End.Line && column >= s.End.Column {
		return false
	}
	return true
}

// Children returns the statement's immediate control-flow children in
// source order.
func (s *Stmt) Children() []*Stmt {
	switch s.Kind {
	case KindCompound:
		return s.Stmts
	case KindBranch:
		children := make([]*Stmt, 0, 2)
		if s.Then != nil {
			children = append(children, s.Then)
		}
		if s.Else != nil {
			children = append(children, s.Else)
		}
		return children
	case KindLoop:
		if s.Body != nil {
			return []*Stmt{s.Body}
		}
	}
	return nil
}

// Function is one analyzable function body.
type Function struct {
	Name   string
	Pos    Pos
	Params []Var
	Body   *Stmt

	locate func(line, column int) *Stmt
}

// Locate returns the innermost non-compound statement occupying the
// position, or false when no statement of the function is there.
func (f *Function) Locate(line, column int) (*Stmt, bool) {
	if f == nil || f.Body == nil {
		return nil, false
	}
	var found *Stmt
	if f.locate != nil {
		found = f.locate(line, column)
	} else {
		found = innermost(f.Body, line, column)
	}
	return found, found != nil
}

// SetLocator installs a front-end specific position lookup.
func (f *Function) SetLocator(locate func(line, column int) *Stmt) {
	f.locate = locate
}

// innermost walks the tree for the deepest non-compound statement
// containing the position.
func innermost(s *Stmt, line, column int) *Stmt {
	if s == nil || !s.Contains(line, column) {
		return nil
	}
	for _, child := range s.Children() {
		if found := innermost(child, line, column); found != nil {
			return found
		}
	}
	if s.Kind == KindCompound {
		return nil
	}
	return s
}

// Unit is a parsed translation unit.
type Unit struct {
	Path      string
	Language  Language
	Functions []*Function
}

// Function returns the function with the given name.
func (u *Unit) Function(name string) (*Function, error) {
	for _, fn := range u.Functions {
		if fn.Name == name {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrFunctionNotFound, name, u.Path)
}

// FunctionNames lists the unit's functions in source order.
func (u *Unit) FunctionNames() []string {
	names := make([]string, 0, len(u.Functions))
	for _, fn := range u.Functions {
		names = append(names, fn.Name)
	}
	return names
}

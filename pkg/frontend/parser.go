package frontend

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Parser turns one source file into a Unit.
type Parser interface {
	Parse(ctx context.Context, path string, src []byte) (*Unit, error)
}

// languageMap maps file extensions to the languages a front-end exists for.
var languageMap = map[string]Language{
	".c":   LanguageC,
	".h":   LanguageC,
	".cpp": LanguageCPP,
	".hpp": LanguageCPP,
	".cc":  LanguageCPP,
	".hh":  LanguageCPP,
	".cxx": LanguageCPP,
	".hxx": LanguageCPP,
	".go":  LanguageGo,
}

// DetectLanguage returns the language for a file path based on its extension.
func DetectLanguage(path string) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageMap[ext]; ok {
		return lang, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
}

// CollapseSpace joins the fields of s with single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// VarSet accumulates variable identities without duplicates.
type VarSet map[Var]struct{}

// Add inserts v.
func (s VarSet) Add(v Var) {
	s[v] = struct{}{}
}

// Sorted returns the set's members ordered by name then declaration.
func (s VarSet) Sorted() []Var {
	if len(s) == 0 {
		return nil
	}
	vars := make([]Var, 0, len(s))
	for v := range s {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].Name != vars[j].Name {
			return vars[i].Name < vars[j].Name
		}
		return vars[i].Decl < vars[j].Decl
	})
	return vars
}

// Scopes resolves names to declaration offsets through nested lexical scopes.
type Scopes struct {
	stack []map[string]int
}

// Push opens a new innermost scope.
func (s *Scopes) Push() {
	s.stack = append(s.stack, make(map[string]int))
}

// Pop closes the innermost scope.
func (s *Scopes) Pop() {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Declare binds name in the innermost scope and returns its identity.
func (s *Scopes) Declare(name string, offset int) Var {
	if len(s.stack) == 0 {
		s.Push()
	}
	s.stack[len(s.stack)-1][name] = offset
	return Var{Name: name, Decl: offset}
}

// Resolve looks name up from the innermost scope outwards.
func (s *Scopes) Resolve(name string) Var {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if offset, ok := s.stack[i][name]; ok {
			return Var{Name: name, Decl: offset}
		}
	}
	return Var{Name: name, Decl: -1}
}

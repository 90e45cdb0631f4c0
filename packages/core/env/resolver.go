package env

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/rawhit/packages/builtin"
)

var (
	variablePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	// names and calls; anything else between braces, such as JSON, is left alone
	namePattern = regexp.MustCompile(`^\$?[A-Za-z_][\w.-]*$`)
	callPattern = regexp.MustCompile(`^\w+\(.*\)$`)
)

// WarnFunc receives a printf-style message for each reference left unresolved.
type WarnFunc func(format string, args ...any)

// Resolver expands {{name}}, {{$ENV_VAR}} and {{func(args)}} references in
// template text. It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc installs fn; nil silences warnings.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) Functions() *builtin.Registry {
	return r.funcs
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

func (r *Resolver) GetVariable(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

// Resolve replaces every reference it can. Unresolved references are kept
// verbatim and reported through the warn function.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		switch {
		case callPattern.MatchString(expr):
			val, ok, err := r.funcs.Call(expr)
			if err != nil {
				r.warn("function call %s failed: %v", expr, err)
				return match
			}
			if !ok {
				r.warn("unresolved function call: %s", expr)
				return match
			}
			return val

		case !namePattern.MatchString(expr):
			return match

		case strings.HasPrefix(expr, "$"):
			envVar := expr[1:]
			if val, ok := os.LookupEnv(envVar); ok {
				return val
			}
			r.warn("unresolved environment variable: $%s", envVar)
			return match
		}

		if val, ok := r.GetVariable(expr); ok {
			return val
		}
		r.warn("unresolved variable: %s", expr)
		return match
	})
}

// Unresolved lists the variable and env references in input that Resolve
// would leave in place, sorted and without duplicates.
func (r *Resolver) Unresolved(input string) []string {
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if !namePattern.MatchString(expr) {
			continue
		}
		if strings.HasPrefix(expr, "$") {
			if _, ok := os.LookupEnv(expr[1:]); ok {
				continue
			}
		} else if _, ok := r.GetVariable(expr); ok {
			continue
		}
		seen[expr] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	clone.funcs = r.funcs
	clone.warnFunc = r.warnFunc
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	return clone
}

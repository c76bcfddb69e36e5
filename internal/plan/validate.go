package plan

import (
	"fmt"
	"strings"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
)

// Validate checks the plan's structure and returns a TaskflowError listing every problem found
func (p *Plan) Validate() error {
	v := &validator{}

	if len(p.Steps) == 0 {
		v.addf("", "plan has no steps")
	}
	v.siblings(p.Name, p.Steps, KindGroup)

	if len(v.problems) > 0 {
		return taskerrors.NewPlanValidationError(p.Name, v.problems)
	}
	return nil
}

type validator struct {
	problems []string
}

func (v *validator) addf(path, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	v.problems = append(v.problems, msg)
}

// siblings validates the children of one group or sequence
func (v *validator) siblings(parent string, steps []*Step, parentKind Kind) {
	seen := make(map[string]bool, len(steps))

	for i, s := range steps {
		if s == nil {
			v.addf(parent, "step %d is empty", i+1)
			continue
		}

		path := stepPath(parent, s.Name)
		if s.Name == "" {
			path = fmt.Sprintf("%s[%d]", parent, i)
			v.addf(path, "step has no name")
		} else if strings.Contains(s.Name, "/") {
			v.addf(path, "step name must not contain '/'")
		} else if seen[s.Name] {
			v.addf(path, "duplicate step name %q", s.Name)
		}
		seen[s.Name] = true

		v.step(path, s, parentKind)
	}

	if parentKind == KindGroup {
		v.after(parent, steps, seen)
	}
}

func (v *validator) step(path string, s *Step, parentKind Kind) {
	kinds := s.Kinds()
	switch len(kinds) {
	case 0:
		v.addf(path, "step needs one of run, sleep, group or sequence")
	case 1:
	default:
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		v.addf(path, "step sets more than one of %s", strings.Join(names, ", "))
	}

	if s.Sleep != nil && *s.Sleep <= 0 {
		v.addf(path, "sleep must be positive, got %s", s.Sleep)
	}
	if s.AllowFailure && s.Kind() != KindRun {
		v.addf(path, "allow_failure is only supported on run steps")
	}
	if len(s.After) > 0 && parentKind == KindSequence {
		v.addf(path, "after is not allowed inside a sequence")
	}

	if kind := s.Kind(); kind == KindGroup || kind == KindSequence {
		v.siblings(path, s.Children(), kind)
	}
}

// after checks that 'after' names existing siblings and forms no cycle
func (v *validator) after(parent string, steps []*Step, names map[string]bool) {
	edges := make(map[string][]string)
	for _, s := range steps {
		if s == nil || s.Name == "" {
			continue
		}
		for _, dep := range s.After {
			path := stepPath(parent, s.Name)
			switch {
			case dep == s.Name:
				v.addf(path, "step cannot run after itself")
			case !names[dep]:
				v.addf(path, "after refers to unknown sibling %q", dep)
			default:
				edges[s.Name] = append(edges[s.Name], dep)
			}
		}
	}

	if cycle := findAfterCycle(steps, edges); cycle != nil {
		v.addf(parent, "after forms a cycle: %s", strings.Join(cycle, " -> "))
	}
}

// findAfterCycle returns the first cycle in edges, in step order, or nil
func findAfterCycle(steps []*Step, edges map[string][]string) []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		visited[name] = true
		onStack[name] = true
		stack = append(stack, name)

		for _, dep := range edges[name] {
			if onStack[dep] {
				for i, n := range stack {
					if n == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
			}
			if !visited[dep] {
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		onStack[name] = false
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, s := range steps {
		if s == nil || s.Name == "" || visited[s.Name] {
			continue
		}
		if cycle := visit(s.Name); cycle != nil {
			return cycle
		}
	}
	return nil
}

func stepPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

package graph

import (
	"fmt"
	"strings"

	"github.com/relplan/relplan/internal/errors"
)

// CyclicDependencyError names every package participating in a dependency cycle.
type CyclicDependencyError struct {
	Cycles [][]string
}

func (err CyclicDependencyError) Error() string {
	parts := make([]string, len(err.Cycles))

	for i, cycle := range err.Cycles {
		parts[i] = "[" + strings.Join(cycle, ", ") + "]"
	}

	return fmt.Sprintf("dependency cycle detected among packages %s", strings.Join(parts, " and "))
}

func (CyclicDependencyError) Kind() errors.Kind {
	return errors.KindCyclicDependency
}

// Members returns every package named in any cycle.
func (err CyclicDependencyError) Members() []string {
	var members []string

	for _, cycle := range err.Cycles {
		members = append(members, cycle...)
	}

	return members
}

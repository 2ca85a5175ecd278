package flags

import (
	"strings"
)

// RelplanPrefix is prepended to the environment variable of every flag.
const RelplanPrefix = "RELPLAN"

// Prefix joins name parts into environment variable names.
type Prefix []string

func (prefix Prefix) EnvVar(name string) string {
	name = strings.Join(append(prefix, name), "_")

	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (prefix Prefix) EnvVars(names ...string) []string {
	var envVars = make([]string, len(names))

	for i := range names {
		envVars[i] = prefix.EnvVar(names[i])
	}

	return envVars
}

package env

import (
	"os"
	"strings"
)

// VariablePrefix marks process environment variables that become template
// variables: RAWHIT_VAR_model=x is available as {{model}}.
const VariablePrefix = "RAWHIT_VAR_"

func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns the environment variables starting with prefix, with
// the prefix removed. An empty prefix returns everything.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if name, found := strings.CutPrefix(key, prefix); found && name != "" {
			result[name] = value
		}
	}
	return result
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// MissingEnvError lists required variables that were not set.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("required environment variable(s) not set: %s", strings.Join(e.Vars, "; "))
}

// ExpandEnvVars expands environment variable references in the input string.
//   - ${VAR} is replaced with VAR's value, or "" if unset
//   - ${VAR:-default} falls back to default when VAR is unset
//   - ${VAR:?message} makes VAR required; every missing one is reported
func ExpandEnvVars(input string) (string, error) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, op, arg := sub[1], sub[2], sub[3]

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		switch op {
		case ":-":
			return arg
		case ":?":
			if arg == "" {
				arg = "must be set"
			}
			missing = append(missing, name+": "+arg)
		}
		return ""
	})
	if len(missing) > 0 {
		return "", &MissingEnvError{Vars: missing}
	}
	return out, nil
}

// ExpandEnvVarsBytes is a convenience wrapper for byte slices.
func ExpandEnvVarsBytes(input []byte) ([]byte, error) {
	out, err := ExpandEnvVars(string(input))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

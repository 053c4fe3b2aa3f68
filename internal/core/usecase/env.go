package usecase

import (
	"sort"
	"strings"
)

// MergeEnvironment layers provider defaults, function overrides and the
// inherited process environment (KEY=VALUE entries, as os.Environ returns).
// Later layers win.
func MergeEnvironment(provider, function map[string]string, process []string) map[string]string {
	env := make(map[string]string, len(provider)+len(function)+len(process))
	for k, v := range provider {
		env[k] = v
	}
	for k, v := range function {
		env[k] = v
	}
	for _, kv := range process {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// EnvironList renders env as sorted KEY=VALUE entries for exec.Cmd.Env.
func EnvironList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

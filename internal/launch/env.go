package launch

import (
	"path"
	"strings"
)

// DefaultEnvPatterns are the variables copied from the coordinator to every
// worker.
var DefaultEnvPatterns = []string{
	"PATH",
	"HOME",
	"USER",
	"LANG",
	"LD_LIBRARY_PATH",
	"PYTHONPATH",
	"VIRTUAL_ENV",
	"CONDA_PREFIX",
	"NCCL_*",
	"OMP_NUM_THREADS",
	"MJLAUNCH_*",
}

// BackendEnvPattern matches the simulation backend's variables.
const BackendEnvPattern = "MUJOCO*"

// FilterEnv keeps the KEY=VALUE entries of environ whose key matches one of
// patterns. Patterns use path.Match syntax. Order is preserved.
func FilterEnv(environ []string, patterns []string) []string {
	var out []string
	for _, kv := range environ {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		for _, p := range patterns {
			if matched, _ := path.Match(p, key); matched {
				out = append(out, kv)
				break
			}
		}
	}
	return out
}

// lookupEnv returns the value of key in environ.
func lookupEnv(environ []string, key string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

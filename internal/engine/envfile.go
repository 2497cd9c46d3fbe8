package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// writeEnvFile materializes an environment map as a sourceable file of
// `export KEY="VALUE"` lines. Every invocation gets its own uniquely named
// file so concurrent executions can never observe each other's variables;
// the file is removed by the caller once the subprocess finishes.
func writeEnvFile(dir string, env map[string]string) (string, error) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=\"%s\"\n", k, escapeEnvValue(env[k]))
	}

	path := filepath.Join(dir, fmt.Sprintf("exec-%s.env", uuid.NewString()))
	if err := os.WriteFile(path, []byte(b.String()), 0o700); err != nil {
		return "", fmt.Errorf("write env file: %w", err)
	}
	return path, nil
}

// escapeEnvValue escapes the characters that are special inside a
// double-quoted shell string.
func escapeEnvValue(v string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"`", "\\`",
		`$`, `\$`,
	)
	return r.Replace(v)
}

package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/driver"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunEmitsAssemblyOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main.c5", `
int add(int a, int b) {
	return a + b;
}

int main() {
	return add(1, 2);
}
`)

	res, err := driver.Run(context.Background(), driver.Options{
		Inputs:       []string{path},
		EmitAssembly: true,
	})
	require.NoError(t, err)
	require.False(t, res.Diagnostics.HasErrors())
	require.Len(t, res.AssemblyPaths, 1)

	out, err := os.ReadFile(res.AssemblyPaths[0])
	require.NoError(t, err)
	require.Contains(t, string(out), "main:")
	require.Contains(t, string(out), "call add")
}

func TestRunReportsSemanticDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "bad.c5", `
int main() {
	return missing_symbol;
}
`)

	res, err := driver.Run(context.Background(), driver.Options{
		Inputs:       []string{path},
		EmitAssembly: true,
	})
	require.ErrorIs(t, err, driver.ErrDiagnostics)
	require.True(t, res.Diagnostics.HasErrors())
}

func TestRunFailsOnMissingInclude(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main.c5", `include "nope.c5";`)

	_, err := driver.Run(context.Background(), driver.Options{
		Inputs:       []string{path},
		EmitAssembly: true,
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, driver.ErrDiagnostics)
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/artprovider/internal/protocol"
	"github.com/roach88/artprovider/internal/provider"
	"github.com/roach88/artprovider/internal/testutil"
)

type nopHooks struct{}

func (nopHooks) OnLoadRequested(ctx context.Context, p *provider.Provider, initial bool) error {
	return nil
}

// testEnv is a served provider plus the flags that point the CLI at it.
type testEnv struct {
	dir    string
	socket string
	p      *provider.Provider
}

// shortTempDir returns a directory short enough for a unix socket path.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "apcli")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func startProvider(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	p, err := provider.New(provider.Config{
		Authority: "local",
		CacheDir:  filepath.Join(dir, "cache"),
		FilesDir:  filepath.Join(dir, "files"),
	}, nopHooks{})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	socket := filepath.Join(shortTempDir(t), "p.sock")
	srv := protocol.NewServer(socket, p, nil)

	base, _ := testutil.Context()
	ctx, cancel := context.WithCancel(base)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	<-srv.Ready()

	return &testEnv{dir: dir, socket: socket, p: p}
}

// run executes the CLI against env and returns stdout.
func (env *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--dir", env.dir, "--socket", env.socket))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// writeFile writes content under env's directory and returns its path.
func (env *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

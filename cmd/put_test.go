package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func redisConfig(t *testing.T, s *miniredis.Miniredis) string {
	t.Helper()
	cfg := "provider:\n  type: redis\nredis:\n  host: " + s.Host() + "\n  port: \"" + s.Port() + "\"\n  key_prefix: kinesis\n"
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPutCommand(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	cfg := redisConfig(t, s)

	t.Run("argument_payload", func(t *testing.T) {
		out, err := runRoot(t, "", "--config", cfg, "put", "orders", "AAA", "-k", "pk-1")
		require.NoError(t, err)

		entries, err := s.Stream("kinesis:orders")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, entries[0].ID+"\n", out)
		require.Contains(t, entries[0].Values, "AAA")
		require.Contains(t, entries[0].Values, "pk-1")
	})

	t.Run("stdin_payload_with_random_key", func(t *testing.T) {
		_, err := runRoot(t, "from-stdin", "--config", cfg, "put", "payments", "-")
		require.NoError(t, err)

		entries, err := s.Stream("kinesis:payments")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Contains(t, entries[0].Values, "from-stdin")
		require.Contains(t, entries[0].Values, "partitionKey")
	})

	t.Run("missing_stream", func(t *testing.T) {
		_, err := runRoot(t, "", "--config", cfg, "put")
		require.Error(t, err)
	})
}

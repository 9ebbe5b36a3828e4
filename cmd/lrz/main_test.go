package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testIO struct {
	in       *bytes.Reader
	out, err bytes.Buffer
	terminal bool
}

func (tio *testIO) stdio() stdio {
	if tio.in == nil {
		tio.in = bytes.NewReader(nil)
	}

	return stdio{
		in:         tio.in,
		out:        &tio.out,
		err:        &tio.err,
		isTerminal: func(any) bool { return tio.terminal },
	}
}

func runCLI(t *testing.T, tio *testIO, args ...string) int {
	t.Helper()
	return run(context.Background(), append([]string{"-p", "2", "-M", "64MiB", "-w", "1MiB"}, args...), tio.stdio())
}

func sample() []byte {
	var b bytes.Buffer
	for i := range 20000 {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("x", i%50))
		b.WriteByte('\n')
	}

	return b.Bytes()
}

func TestRun_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	data := sample()
	require.NoError(t, os.WriteFile(path, data, 0o640))

	tio := &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "-Z", path), tio.err.String())

	compressed := path + ".lrz"
	fi, err := os.Stat(compressed)
	require.NoError(t, err)
	require.Less(t, fi.Size(), int64(len(data)))
	require.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	// refuses to overwrite
	tio = &testIO{}
	require.Equal(t, 1, runCLI(t, tio, path))
	require.Contains(t, tio.err.String(), "already exists")

	tio = &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "-t", compressed), tio.err.String())

	require.NoError(t, os.Remove(path))
	tio = &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "-d", compressed), tio.err.String())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestRun_Stdio(t *testing.T) {
	data := sample()

	tio := &testIO{in: bytes.NewReader(data)}
	require.Equal(t, 0, runCLI(t, tio, "--best-of", "lz4,zstd"), tio.err.String())
	compressed := append([]byte(nil), tio.out.Bytes()...)

	tio = &testIO{in: bytes.NewReader(compressed)}
	require.Equal(t, 0, runCLI(t, tio, "-d", "--tmpdir", t.TempDir()), tio.err.String())
	require.Equal(t, data, tio.out.Bytes())
}

func TestRun_RefusesTerminal(t *testing.T) {
	tio := &testIO{in: bytes.NewReader(sample()), terminal: true}
	require.Equal(t, 1, runCLI(t, tio))
	require.Contains(t, tio.err.String(), "terminal")
	require.Zero(t, tio.out.Len())
}

func TestRun_Info(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, sample(), 0o600))

	tio := &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "-l", path), tio.err.String())

	tio = &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "-i", "-v", path+".lrz"), tio.err.String())
	out := tio.out.String()
	require.Contains(t, out, "control")
	require.Contains(t, out, "literal")
	require.Contains(t, out, "blake3")
	require.Contains(t, out, "offset")
}

func TestRun_BadFlags(t *testing.T) {
	tests := [][]string{
		{"-l", "-Z"},
		{"--codec", "bzip2"},
		{"-L", "12"},
		{"-w", "lots"},
		{"--best-of", "zstd"},
		{"--no-such-flag"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			tio := &testIO{}
			require.Equal(t, 2, runCLI(t, tio, args...))
		})
	}
}

func TestRun_DecompressNeedsSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	tio := &testIO{}
	require.Equal(t, 1, runCLI(t, tio, "-d", path))
	require.Contains(t, tio.err.String(), "unknown suffix")
}

func TestRun_CorruptInputRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.lrz")
	require.NoError(t, os.WriteFile(path, []byte("LRZI but not really a file"), 0o600))

	tio := &testIO{}
	require.Equal(t, 1, runCLI(t, tio, "-d", path))
	_, err := os.Stat(filepath.Join(dir, "bad"))
	require.ErrorIs(t, err, os.ErrNotExist)

	tio = &testIO{}
	require.Equal(t, 1, runCLI(t, tio, "-d", "-k", path))
	_, err = os.Stat(filepath.Join(dir, "bad"))
	require.NoError(t, err)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "lrz.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("codec: deflate\nlevel: 3\n"), 0o600))

	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, sample(), 0o600))

	tio := &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "--config", cfgPath, path), tio.err.String())

	tio = &testIO{}
	require.Equal(t, 0, runCLI(t, tio, "-i", path+".lrz"))
	require.Contains(t, tio.out.String(), "Deflate (level 3")
}

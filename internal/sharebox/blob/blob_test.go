package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	require.Equal(t, "projects/p1/f1_report.pdf", blob.ObjectPath("p1", "f1", "report.pdf"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\notes.txt`, "notes.txt"},
		{"my file (1).txt", "my_file__1_.txt"},
		{".hidden", "hidden"},
		{"résumé.doc", "r_sum_.doc"},
		{"", "file"},
		{"/", "file"},
		{"..", "file"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, blob.SanitizeFilename(tc.in))
		})
	}

	long := strings.Repeat("a", 300) + ".bin"
	got := blob.SanitizeFilename(long)
	require.LessOrEqual(t, len(got), 120)
	require.True(t, strings.HasSuffix(got, ".bin"), "extension survives truncation")
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	l, err := blob.NewLocal(root)
	require.NoError(t, err)
	require.NoError(t, l.Ping(ctx))

	key := blob.ObjectPath("p1", "f1", "hello.txt")
	require.NoError(t, l.Put(ctx, key, strings.NewReader("hello"), 5, "text/plain"))

	data, err := os.ReadFile(filepath.Join(root, "projects", "p1", "f1_hello.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	require.NoError(t, l.Delete(ctx, key))
	require.NoError(t, l.Delete(ctx, key), "deleting twice is fine")

	_, err = os.Stat(filepath.Join(root, "projects", "p1", "f1_hello.txt"))
	require.True(t, os.IsNotExist(err))

	for _, bad := range []string{"", "/abs", "../escape", "a/../../b", `a\b`} {
		require.ErrorIs(t, l.Put(ctx, bad, strings.NewReader("x"), 1, ""), blob.ErrInvalidKey, bad)
		require.ErrorIs(t, l.Delete(ctx, bad), blob.ErrInvalidKey, bad)
	}
}

func TestMemoryFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := blob.NewMemory()

	require.NoError(t, m.Put(ctx, "a/1", strings.NewReader("one"), 3, ""))
	require.NoError(t, m.Put(ctx, "a/2", strings.NewReader("two"), 3, ""))
	require.Equal(t, []string{"a/1", "a/2"}, m.Keys())

	got, err := m.Get("a/1")
	require.NoError(t, err)
	require.Equal(t, "one", string(got))

	m.FailDelete("a/1", true)
	require.ErrorIs(t, m.Delete(ctx, "a/1"), blob.ErrInjected)
	require.True(t, m.Has("a/1"))
	require.NoError(t, m.Delete(ctx, "a/2"))

	m.FailDelete("a/1", false)
	require.NoError(t, m.Delete(ctx, "a/1"))
	require.Empty(t, m.Keys())

	m.FailPuts(true)
	require.ErrorIs(t, m.Put(ctx, "a/3", strings.NewReader("x"), 1, ""), blob.ErrInjected)
	m.FailPuts(false)

	m.FailAllDeletes(true)
	require.ErrorIs(t, m.Delete(ctx, "anything"), blob.ErrInjected)

	_, err = m.Get("missing")
	require.ErrorIs(t, err, blob.ErrNotFound)
}

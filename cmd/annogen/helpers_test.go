package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

// minimalManifestYAML passes validateManifest and only needs decor imports.
func minimalManifestYAML() []byte {
	return []byte(`package: todos
owners:
  - type: Registration
    members:
      - name: SetEmail
        params:
          - index: 0
            transform: [trim, lowercase]
            validate: ["tag:email"]
`)
}

// ownerFileSource is a Go file carrying the go:generate directive and the
// imports interceptor expressions are expected to use.
const ownerFileSource = `package todos

//go:generate go run github.com/sghaida/decor/cmd/annogen -manifest annotations.yaml -out annotations.gen.go

import (
	"fmt"
	"time"

	w "github.com/sghaida/decor/wrap"
)

var _ = fmt.Sprint
var _ = time.Second
var _ = w.Safe
`

//
// -----------------------------------------------------------------------------
// Small helpers
// -----------------------------------------------------------------------------

// writeTempFile writes a file under dir/name and returns its full path.
func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// readFileString reads a file and returns its contents as string (fatal on error).
func readFileString(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

// requirePanicContains asserts fn panics and the panic message contains wantSub.
func requirePanicContains(t *testing.T, wantSub string, fn func()) {
	t.Helper()

	defer func() {
		recovered := recover()
		require.NotNil(t, recovered)

		var message string
		switch v := recovered.(type) {
		case error:
			message = v.Error()
		case string:
			message = v
		default:
			message = fmt.Sprintf("%v", v)
		}
		require.Contains(t, message, wantSub)
	}()

	fn()
}

//
// -----------------------------------------------------------------------------
// writeFileAtomic() seam helpers
// -----------------------------------------------------------------------------

// fakeTempFile is a controllable file-like object for writeFileAtomic tests.
type fakeTempFile struct {
	fileName string
	writeErr error
	closeErr error
}

func (f *fakeTempFile) Name() string { return f.fileName }

func (f *fakeTempFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeTempFile) Close() error { return f.closeErr }

// restoreWriteFileSeams puts the real file seams back when t ends.
func restoreWriteFileSeams(t *testing.T) {
	t.Helper()
	origCreate, origRemove, origChmod, origRename := createTempFile, removeFile, chmodFile, renameFile
	t.Cleanup(func() {
		createTempFile = origCreate
		removeFile = origRemove
		chmodFile = origChmod
		renameFile = origRename
	})
}

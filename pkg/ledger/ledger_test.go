package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.apk")
	b := filepath.Join(dir, "b.apk")
	c := filepath.Join(dir, "c.apk")
	require.NoError(t, os.WriteFile(a, []byte("same content"), 0600))
	require.NoError(t, os.WriteFile(b, []byte("same content"), 0600))
	require.NoError(t, os.WriteFile(c, []byte("other content"), 0600))

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, _ := Fingerprint(b)
	fc, _ := Fingerprint(c)

	assert.Len(t, fa, 16)
	assert.Equal(t, fa, fb)
	assert.NotEqual(t, fa, fc)

	_, err = Fingerprint(filepath.Join(dir, "missing.apk"))
	assert.Error(t, err)
}

func TestLedgerPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".ledger")

	l, err := Open(dir, nil)
	require.NoError(t, err)
	entry, err := l.Lookup("00000000deadbeef")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, l.Record("00000000deadbeef", Entry{Package: "com.example", File: "app.apk"}))
	require.NoError(t, l.Close())

	l, err = Open(dir, nil)
	require.NoError(t, err)
	defer l.Close()

	entry, err = l.Lookup("00000000deadbeef")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "com.example", entry.Package)
	assert.False(t, entry.RecordedAt.IsZero())

	missing, err := l.Lookup("ffffffffffffffff")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".ledger")
	l, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, l.Record("0000000000000001", Entry{Package: "p"}))
	require.NoError(t, l.Close())

	require.NoError(t, Reset(dir))

	l, err = Open(dir, nil)
	require.NoError(t, err)
	defer l.Close()
	entry, err := l.Lookup("0000000000000001")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

package security

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	sig := Sign(priv, []byte("record digest"))

	ok, err := Verify(pub, []byte("record digest"), sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(pub, []byte("other data"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveAndLoadKeyPair(t *testing.T) {
	dir := t.TempDir()
	pubPath := filepath.Join(dir, "k.pub")
	privPath := filepath.Join(dir, "k.priv")

	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, SaveKeyPair(pub, priv, pubPath, privPath))

	loadedPub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)
	assert.Equal(t, pub, loadedPub)

	loadedPriv, err := LoadPrivateKey(privPath)
	require.NoError(t, err)
	assert.Equal(t, priv, loadedPriv)
}

func TestLoadKeyRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.pub")
	_, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	// a private key is the wrong size for a public key file
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(priv)), 0o600))

	_, err = LoadPublicKey(path)
	assert.Error(t, err)
}

func TestEnsureKeyPairRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	pub1, priv1, err := EnsureKeyPair(dir)
	require.NoError(t, err)

	// second call loads the same pair instead of regenerating
	pub2, priv2, err := EnsureKeyPair(dir)
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
	assert.Equal(t, priv1, priv2)
}

// ABOUTME: Tests for command wiring
// ABOUTME: Builds the full server graph and runs reconcile against a held lock

package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevachat/geminiboard/internal/config"
	"github.com/kevachat/geminiboard/internal/lock"
	"github.com/kevachat/geminiboard/internal/pool"
)

// writeCertificate creates a self-signed certificate pair in dir.
func writeCertificate(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "kevachat.example"},
		DNSNames:     []string{"kevachat.example"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func writeHostConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
server:
  host: "kevachat.example"
  addr: "127.0.0.1:0"
kevacoin:
  url: "http://127.0.0.1:1"
database:
  path: %q
pool:
  cost: "0.1"
  lock_dir: %q
%s`, filepath.Join(dir, "pool.db"), dir, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestBuildServer(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertificate(t, dir)

	cfg, err := config.Load(writeHostConfig(t, dir, ""))
	require.NoError(t, err)
	cfg.Server.CertFile = certFile
	cfg.Server.KeyFile = keyFile

	server, err := buildServer(cfg, pool.NewMockStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.NotNil(t, server)
}

func TestBuildServer_BadLocale(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertificate(t, dir)

	cfg, err := config.Load(writeHostConfig(t, dir, ""))
	require.NoError(t, err)
	cfg.Server.CertFile = certFile
	cfg.Server.KeyFile = keyFile
	cfg.Locale.Path = filepath.Join(dir, "missing.toml")

	_, err = buildServer(cfg, pool.NewMockStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "loading locale")
}

func TestRunReconcile_AlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvPath, writeHostConfig(t, dir, "logging:\n  format: \"json\"\n"))

	held, err := lock.Acquire(filepath.Join(dir, lock.Name("kevachat.example")))
	require.NoError(t, err)
	defer held.Release()

	assert.NoError(t, runReconcile(context.Background(), "kevachat.example"))
}

func TestRunReconcile_MissingConfig(t *testing.T) {
	t.Setenv(config.EnvPath, filepath.Join(t.TempDir(), "absent.yaml"))

	err := runReconcile(context.Background(), "kevachat.example")
	assert.ErrorContains(t, err, "loading config")
}

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestCert(t *testing.T, dir string) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "dockerdns test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))

	return certPath, keyPath
}

func Test_CertManager(t *testing.T) {
	certPath, keyPath := writeTestCert(t, t.TempDir())

	cm, err := NewCertManager(certPath, keyPath)
	require.NoError(t, err)
	defer cm.Stop()

	cert, err := cm.GetCertificate(nil)
	require.NoError(t, err)
	assert.NotNil(t, cert)

	tlsCfg := cm.GetTLSConfig()
	assert.NotNil(t, tlsCfg.GetCertificate)

	require.NoError(t, cm.Reload())
}

func Test_CertManagerMissing(t *testing.T) {
	_, err := NewCertManager("/non/existent.crt", "/non/existent.key")
	assert.Error(t, err)
}

package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testPKI holds the PEM files of a CA and of a server and client certificate it signed
type testPKI struct {
	caFile     string
	serverCert string
	serverKey  string
	clientCert string
	clientKey  string
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func issue(t *testing.T, dir, name string, template, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*x509.Certificate, *ecdsa.PrivateKey, string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	signer := parentKey
	if parent == nil {
		parent, signer = template, key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}

	certFile := filepath.Join(dir, name+".crt")
	keyFile := filepath.Join(dir, name+".key")
	writePEM(t, certFile, "CERTIFICATE", der)
	writePEM(t, keyFile, "EC PRIVATE KEY", keyDER)
	return cert, key, certFile, keyFile
}

func newTestPKI(t *testing.T) testPKI {
	t.Helper()
	dir := t.TempDir()
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(time.Hour)

	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	ca, caKey, caFile, _ := issue(t, dir, "ca", caTemplate, nil, nil)

	serverTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "bufnet"},
		DNSNames:     []string{"bufnet", "localhost"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	_, _, serverCert, serverKey := issue(t, dir, "server", serverTemplate, ca, caKey)

	clientTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "client"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	_, _, clientCert, clientKey := issue(t, dir, "client", clientTemplate, ca, caKey)

	return testPKI{
		caFile:     caFile,
		serverCert: serverCert,
		serverKey:  serverKey,
		clientCert: clientCert,
		clientKey:  clientKey,
	}
}

func TestLoadServerTLSConfig(t *testing.T) {
	pki := newTestPKI(t)

	cfg, err := LoadServerTLSConfig(pki.serverCert, pki.serverKey, "")
	if err != nil {
		t.Fatalf("LoadServerTLSConfig failed: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Expected 1 certificate, got %d", len(cfg.Certificates))
	}
	if cfg.ClientAuth != tls.NoClientCert {
		t.Errorf("Expected no client authentication without a CA, got %v", cfg.ClientAuth)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("Expected TLS 1.2 minimum, got %x", cfg.MinVersion)
	}

	cfg, err = LoadServerTLSConfig(pki.serverCert, pki.serverKey, pki.caFile)
	if err != nil {
		t.Fatalf("LoadServerTLSConfig with CA failed: %v", err)
	}
	if cfg.ClientAuth != tls.RequireAndVerifyClientCert || cfg.ClientCAs == nil {
		t.Error("Expected client certificates to be required with a CA")
	}
}

func TestLoadServerTLSConfigErrors(t *testing.T) {
	pki := newTestPKI(t)
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name                  string
		certFile, keyFile, ca string
	}{
		{"missing key", pki.serverCert, "", ""},
		{"missing cert", "", pki.serverKey, ""},
		{"mismatched pair", pki.serverCert, pki.clientKey, ""},
		{"unreadable CA", pki.serverCert, pki.serverKey, filepath.Join(t.TempDir(), "absent.pem")},
		{"bad CA", pki.serverCert, pki.serverKey, garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadServerTLSConfig(tt.certFile, tt.keyFile, tt.ca); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadClientTLSConfig(t *testing.T) {
	pki := newTestPKI(t)

	cfg, err := LoadClientTLSConfig(TLSConfig{
		CertFile: pki.clientCert,
		KeyFile:  pki.clientKey,
		CAFile:   pki.caFile,
	})
	if err != nil {
		t.Fatalf("LoadClientTLSConfig failed: %v", err)
	}
	if len(cfg.Certificates) != 1 || cfg.RootCAs == nil {
		t.Error("Expected a client certificate and root CAs")
	}
	if cfg.InsecureSkipVerify {
		t.Error("Expected verification to stay enabled")
	}

	cfg, err = LoadClientTLSConfig(TLSConfig{SkipVerify: true})
	if err != nil {
		t.Fatalf("LoadClientTLSConfig failed: %v", err)
	}
	if !cfg.InsecureSkipVerify || cfg.RootCAs != nil || len(cfg.Certificates) != 0 {
		t.Error("Expected a bare config skipping verification")
	}

	if _, err := LoadClientTLSConfig(TLSConfig{CertFile: pki.clientCert, KeyFile: pki.serverKey}); err == nil {
		t.Error("Expected error for mismatched key pair")
	}
	if _, err := LoadClientTLSConfig(TLSConfig{CAFile: pki.clientKey}); err == nil {
		t.Error("Expected error for a CA file without certificates")
	}
}

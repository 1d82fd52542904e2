package adapter

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// MakeTLSConfig builds a client [*tls.Config] from PEM files. The CA is
// optional and falls back to the system pool; cert and key go together.
// All empty means plaintext and yields nil.
func MakeTLSConfig(ca, cert, key string) (*tls.Config, error) {
	const op = "adapter.MakeTLSConfig"

	if ca == "" && cert == "" && key == "" {
		return nil, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if ca != "" {
		caCert, err := os.ReadFile(ca)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read CA certificate file: %w", op, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("%s: failed to parse CA certificate", op)
		}
		cfg.RootCAs = pool
	}

	if (cert == "") != (key == "") {
		return nil, fmt.Errorf("%s: %w", op, errors.New("cert and key must be set together"))
	}
	if cert != "" {
		clientCert, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cfg.Certificates = []tls.Certificate{clientCert}
	}

	return cfg, nil
}

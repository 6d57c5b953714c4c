package cliutil

import (
	"crypto/tls"
	"fmt"
)

// LoadClientTLSConfig loads a client certificate/key pair for
// presenting to the APNs gateway. Grounded on
// steveyegge-beads/internal/rpc/tls_config.go's SetTLSConfig
// (LoadX509KeyPair, MinVersion floor), adapted from a server-side
// listener config to a client dialer config.
func LoadClientTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

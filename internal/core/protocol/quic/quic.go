// Package quic carries protocol frames as newline-delimited JSON on a single
// bidirectional QUIC stream.
package quic

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	Transport = "quic"

	// ALPN is the application protocol negotiated during the TLS handshake.
	ALPN = "hoops-quic"

	// DefaultIdleTimeout is the default connection idle timeout
	DefaultIdleTimeout = 30 * time.Second

	// DefaultKeepAlive is the default keep-alive interval
	DefaultKeepAlive = 10 * time.Second
)

func defaultConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
	}
}

// GenerateSelfSignedTLS generates a self-signed server certificate for
// localhost, valid for one year.
func GenerateSelfSignedTLS() (*tls.Config, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"Hoops"}},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	return ServerTLS(tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  privateKey,
	}), nil
}

// LoadTLS reads a PEM certificate and key pair.
func LoadTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return ServerTLS(cert), nil
}

func ServerTLS(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}
}

// ClientTLS returns the dialer configuration. insecure skips certificate
// verification, which a self-signed development server requires.
func ClientTLS(insecure bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: insecure, //nolint:gosec
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
	}
}

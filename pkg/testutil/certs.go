package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
)

// SelfSigned writes a throwaway certificate covering names to certFile and
// its key to keyFile. IP literals go into the IP SANs.
func SelfSigned(certFile, keyFile string, names []string) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{Organization: []string{"hermes test"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, n := range names {
		if ip := net.ParseIP(n); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, n)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return err
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
		return err
	}
	return os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600)
}

// MkcertResponse fakes "mkcert -cert-file C -key-file K names..." by minting
// a self-signed certificate for the requested names.
func MkcertResponse() Response {
	return Response{Do: func(opts execute.Options) error {
		var certFile, keyFile string
		var names []string
		for i := 0; i < len(opts.Args); i++ {
			switch opts.Args[i] {
			case "-cert-file":
				i++
				certFile = opts.Args[i]
			case "-key-file":
				i++
				keyFile = opts.Args[i]
			case "-install":
				return nil
			default:
				names = append(names, opts.Args[i])
			}
		}
		return SelfSigned(certFile, keyFile, names)
	}}
}

package quicnet

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caddyserver/certmagic"
)

// ACMEConfig describes a publicly reachable render endpoint whose
// certificate is obtained and renewed by certmagic.
type ACMEConfig struct {
	Domain string
	Email  string
	// CertDir holds issued certificates. Empty means $XDG_CACHE_HOME/medchat/acme.
	CertDir string
	// CA overrides the directory URL, e.g. the Let's Encrypt staging CA.
	CA string
	// ALPNPort lets the TLS-ALPN-01 challenge run on the render port
	// instead of :443. Zero disables that challenge.
	ALPNPort int
}

// BuildCertMagicTLS manages a certificate for cfg.Domain. The returned
// handler answers HTTP-01 challenges and must be mounted on :80.
func BuildCertMagicTLS(ctx context.Context, cfg ACMEConfig) (*tls.Config, http.Handler, error) {
	if cfg.Domain == "" {
		return nil, nil, errors.New("acme: domain is required")
	}
	dir := cfg.CertDir
	if dir == "" {
		dir = defaultCertDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("acme: cert dir: %w", err)
	}

	magic := certmagic.NewDefault()
	magic.Storage = &certmagic.FileStorage{Path: dir}
	ca := cfg.CA
	if ca == "" {
		ca = certmagic.LetsEncryptProductionCA
	}
	issuer := certmagic.NewACMEIssuer(magic, certmagic.ACMEIssuer{
		CA:                      ca,
		Email:                   cfg.Email,
		Agreed:                  true,
		AltTLSALPNPort:          cfg.ALPNPort,
		DisableTLSALPNChallenge: cfg.ALPNPort == 0,
	})
	magic.Issuers = []certmagic.Issuer{issuer}

	if err := magic.ManageSync(ctx, []string{cfg.Domain}); err != nil {
		return nil, nil, fmt.Errorf("acme: manage %s: %w", cfg.Domain, err)
	}
	conf := magic.TLSConfig()
	conf.MinVersion = tls.VersionTLS13
	withALPN(conf)
	return conf, issuer.HTTPChallengeHandler(http.NotFoundHandler()), nil
}

func defaultCertDir() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "medchat", "acme")
}

// ParsePort returns the numeric port of a host:port address, or 0.
func ParsePort(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return p
}

// BuildFileTLS loads an operator supplied PEM key pair. Every certificate in
// the chain must be currently valid.
func BuildFileTLS(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, errors.New("tls: cert and key files are both required")
	}
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("tls: load key pair: %w", err)
	}
	if err := checkChain(pair.Certificate, time.Now()); err != nil {
		return nil, err
	}
	conf := &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS13}
	withALPN(conf)
	return conf, nil
}

func checkChain(chain [][]byte, now time.Time) error {
	for i, der := range chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("tls: certificate %d: %w", i, err)
		}
		switch {
		case now.Before(cert.NotBefore):
			return fmt.Errorf("tls: certificate %d (%s) not valid before %s", i, cert.Subject.CommonName, cert.NotBefore.Format(time.RFC3339))
		case now.After(cert.NotAfter):
			return fmt.Errorf("tls: certificate %d (%s) expired %s", i, cert.Subject.CommonName, cert.NotAfter.Format(time.RFC3339))
		}
	}
	return nil
}

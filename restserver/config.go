// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"crypto/tls"
	"time"

	"github.com/diffeo/go-svckit/restdata"
)

// DefaultInternalKeyHeader is the header checked for the internal API
// key when InternalKey.HeaderName is empty.
const DefaultInternalKeyHeader = "x-pn-hard-coded-api-key"

// DefaultHost is the listen address used when Config.Host is empty.
const DefaultHost = "0.0.0.0"

// DefaultReadHeaderTimeout bounds how long a client may take to send
// its request headers when Config.ReadHeaderTimeout is zero.
const DefaultReadHeaderTimeout = 10 * time.Second

// InternalKey describes the shared-secret header that restricts
// access to a service.
type InternalKey struct {
	// Enabled turns the check on.  If false, every request is
	// allowed.
	Enabled bool

	// HeaderName is the name of the header carrying the secret.
	// If empty, DefaultInternalKeyHeader is used.
	HeaderName string

	// Secret is the value the header must carry.  It is required
	// if Enabled is true.
	Secret string
}

// TLSMaterial holds PEM-encoded certificate and key data for a
// service that terminates TLS itself.
type TLSMaterial struct {
	Certificate []byte
	PrivateKey  []byte
}

// Config describes a single service instance.  It is copied when the
// Service is created and not consulted again.
type Config struct {
	// Name identifies the service in logs and in the root status
	// document.
	Name string

	// BaseURL is the path prefix for every registered route.
	BaseURL string

	// URLVersion is the version segment following BaseURL, such
	// as "v1".
	URLVersion string

	// Port is the TCP port to listen on.  Zero picks a free port.
	Port int

	// Host is the address to bind.  If empty, DefaultHost.
	Host string

	// Version is reported in the root status document.
	Version string

	// TLS, if non-nil, makes the service serve HTTPS.
	TLS *TLSMaterial

	// InternalKey configures the shared-secret check.
	InternalKey InternalKey

	// ReadHeaderTimeout is the time allowed to read request
	// headers.  If zero, DefaultReadHeaderTimeout.
	ReadHeaderTimeout time.Duration
}

// normalize fills in defaults and checks c for problems that would
// keep the service from starting.  It returns the parsed TLS
// certificate, if any.
func (c *Config) normalize() (*tls.Certificate, error) {
	fail := func(reason string) error {
		return restdata.ErrPrecondition{Op: "restserver.New", Reason: reason}
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port < 0 || c.Port > 65535 {
		return nil, fail("port out of range")
	}
	if c.ReadHeaderTimeout < 0 {
		return nil, fail("negative read header timeout")
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.InternalKey.Enabled {
		if c.InternalKey.Secret == "" {
			return nil, fail("internal key is enabled but has no secret")
		}
		if c.InternalKey.HeaderName == "" {
			c.InternalKey.HeaderName = DefaultInternalKeyHeader
		}
	}
	if c.TLS == nil {
		return nil, nil
	}
	if len(c.TLS.Certificate) == 0 || len(c.TLS.PrivateKey) == 0 {
		return nil, fail("TLS requires both a certificate and a private key")
	}
	pair, err := tls.X509KeyPair(c.TLS.Certificate, c.TLS.PrivateKey)
	if err != nil {
		return nil, fail("invalid TLS material: " + err.Error())
	}
	return &pair, nil
}

// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config loads a service's settings.  The configuration file
// is YAML holding one top-level section per service name:
//
//     kv-service:
//       listen_port: 8080
//       base_url: /kv
//       url_version: v1
//       terminate_tls:
//         enabled: true
//         certificate_file: /etc/tls/tls.crt
//         private_key_file: /etc/tls/tls.key
//       internal_api_key:
//         enabled: true
//         key: s3cret
//       api_gateway:
//         url: https://gw.example.com
//         api_key: abc
//
// Environment variables override the file; see Env for the list.
package config

import (
	"io/ioutil"

	"github.com/diffeo/go-svckit/apigw"
	"github.com/diffeo/go-svckit/logging"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/diffeo/go-svckit/restserver"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// DefaultPort is the listen port when neither the file nor the
// environment names one.
const DefaultPort = 8080

// DefaultVersion is reported when VERSION_NUMBER is not set.
const DefaultVersion = "not-set"

// TLS names the certificate and key files for a service that
// terminates TLS itself.
type TLS struct {
	Enabled         bool   `mapstructure:"enabled"`
	CertificateFile string `mapstructure:"certificate_file"`
	PrivateKeyFile  string `mapstructure:"private_key_file"`
}

// InternalAPIKey configures the shared-secret header check.
type InternalAPIKey struct {
	Enabled bool   `mapstructure:"enabled"`
	Key     string `mapstructure:"key"`
	Name    string `mapstructure:"name"`
}

// APIGateway locates the API gateway.
type APIGateway struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	APIKeyName string `mapstructure:"api_key_name"`

	// WebshieldAPIKey is an older spelling of APIKey, used if
	// APIKey is empty.
	WebshieldAPIKey string `mapstructure:"webshield_api_key"`
}

// File is one service's configuration.
type File struct {
	// Name is the service name; it is the section the settings
	// came from.
	Name string `mapstructure:"-"`

	ListenPort int    `mapstructure:"listen_port"`
	ListenHost string `mapstructure:"listen_host"`
	BaseURL    string `mapstructure:"base_url"`
	URLVersion string `mapstructure:"url_version"`
	Version    string `mapstructure:"version"`

	// Storage selects the repository backend, as accepted by
	// repo.Backend.Set.
	Storage string `mapstructure:"storage"`

	TerminateTLS   TLS             `mapstructure:"terminate_tls"`
	InternalAPIKey InternalAPIKey  `mapstructure:"internal_api_key"`
	APIGateway     APIGateway      `mapstructure:"api_gateway"`
	Log            logging.Options `mapstructure:"log"`
}

// Env lists the environment variables that override the file.
// Unset variables leave the file's value alone.
type Env struct {
	ConfigFile string `envconfig:"CONFIG_FILE"`

	ListenPort *int   `envconfig:"LISTEN_PORT"`
	ListenHost string `envconfig:"LISTEN_HOST"`
	Version    string `envconfig:"VERSION_NUMBER"`
	Storage    string `envconfig:"STORAGE_BACKEND"`
	LogLevel   string `envconfig:"LOG_LEVEL"`

	TLSEnabled         *bool  `envconfig:"TLS_ENABLED"`
	TLSCertificateFile string `envconfig:"TLS_CERTIFICATE_FILE"`
	TLSPrivateKeyFile  string `envconfig:"TLS_PRIVATE_KEY_FILE"`

	InternalAPIKeyEnabled *bool  `envconfig:"INTERNAL_API_KEY_ENABLED"`
	InternalAPIKey        string `envconfig:"INTERNAL_API_KEY"`
	InternalAPIKeyName    string `envconfig:"INTERNAL_API_KEY_NAME"`

	GatewayURL        string `envconfig:"API_GATEWAY_URL"`
	GatewayAPIKey     string `envconfig:"API_GATEWAY_API_KEY"`
	GatewayAPIKeyName string `envconfig:"API_GATEWAY_API_KEY_NAME"`
	WebshieldAPIKey   string `envconfig:"WEBSHIELD_API_KEY"`
}

// ReadEnv reads the override variables from the process environment.
func ReadEnv() (Env, error) {
	var env Env
	err := envconfig.Process("", &env)
	return env, err
}

// LoadFile reads the configuration for service from a YAML file.  If
// CONFIG_FILE is set it names the file instead of path.  Environment
// overrides are applied and the result is verified.
func LoadFile(path, service string) (*File, error) {
	env, err := ReadEnv()
	if err != nil {
		return nil, err
	}
	if env.ConfigFile != "" {
		path = env.ConfigFile
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return load(data, service, env)
}

// LoadYAML parses the configuration for service out of YAML text,
// then applies environment overrides and verifies the result.  A
// missing section is not an error; the service then runs on defaults
// and environment variables alone.
func LoadYAML(data []byte, service string) (*File, error) {
	env, err := ReadEnv()
	if err != nil {
		return nil, err
	}
	return load(data, service, env)
}

func load(data []byte, service string, env Env) (*File, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	f := &File{}
	if section, present := doc[service]; present && section != nil {
		decoderConfig := mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           f,
		}
		decoder, err := mapstructure.NewDecoder(&decoderConfig)
		if err != nil {
			return nil, err
		}
		if err = decoder.Decode(section); err != nil {
			return nil, err
		}
	}
	f.Name = service
	f.Apply(env)
	if err := f.Verify(); err != nil {
		return nil, err
	}
	return f, nil
}

// Apply overlays set environment variables onto f and fills in
// defaults for anything still missing.
func (f *File) Apply(env Env) {
	if env.ListenPort != nil {
		f.ListenPort = *env.ListenPort
	}
	if f.ListenPort == 0 {
		f.ListenPort = DefaultPort
	}
	if env.ListenHost != "" {
		f.ListenHost = env.ListenHost
	}
	if env.Version != "" {
		f.Version = env.Version
	}
	if f.Version == "" {
		f.Version = DefaultVersion
	}
	if env.Storage != "" {
		f.Storage = env.Storage
	}
	if env.LogLevel != "" {
		f.Log.Level = env.LogLevel
	}

	if env.TLSEnabled != nil {
		f.TerminateTLS.Enabled = *env.TLSEnabled
	}
	if env.TLSCertificateFile != "" {
		f.TerminateTLS.CertificateFile = env.TLSCertificateFile
	}
	if env.TLSPrivateKeyFile != "" {
		f.TerminateTLS.PrivateKeyFile = env.TLSPrivateKeyFile
	}

	if env.InternalAPIKeyEnabled != nil {
		f.InternalAPIKey.Enabled = *env.InternalAPIKeyEnabled
	}
	if env.InternalAPIKey != "" {
		f.InternalAPIKey.Key = env.InternalAPIKey
	}
	if env.InternalAPIKeyName != "" {
		f.InternalAPIKey.Name = env.InternalAPIKeyName
	}

	if env.GatewayURL != "" {
		f.APIGateway.URL = env.GatewayURL
	}
	if env.WebshieldAPIKey != "" {
		f.APIGateway.WebshieldAPIKey = env.WebshieldAPIKey
	}
	if env.GatewayAPIKey != "" {
		f.APIGateway.APIKey = env.GatewayAPIKey
	}
	if f.APIGateway.APIKey == "" {
		f.APIGateway.APIKey = f.APIGateway.WebshieldAPIKey
	}
	if env.GatewayAPIKeyName != "" {
		f.APIGateway.APIKeyName = env.GatewayAPIKeyName
	}
}

// Verify checks f for settings that cannot work together.
func (f *File) Verify() error {
	fail := func(reason string) error {
		return restdata.ErrPrecondition{Op: "config.Verify", Reason: reason}
	}
	if f.ListenPort < 0 || f.ListenPort > 65535 {
		return fail("listen_port out of range")
	}
	if f.TerminateTLS.Enabled {
		if f.TerminateTLS.CertificateFile == "" {
			return fail("terminate_tls is enabled without certificate_file")
		}
		if f.TerminateTLS.PrivateKeyFile == "" {
			return fail("terminate_tls is enabled without private_key_file")
		}
	}
	if f.InternalAPIKey.Enabled && f.InternalAPIKey.Key == "" {
		return fail("internal_api_key is enabled without a key")
	}
	return nil
}

// ServiceConfig builds the restserver configuration.  If TLS is
// enabled the certificate and key files are read here.
func (f *File) ServiceConfig() (restserver.Config, error) {
	config := restserver.Config{
		Name:       f.Name,
		BaseURL:    f.BaseURL,
		URLVersion: f.URLVersion,
		Port:       f.ListenPort,
		Host:       f.ListenHost,
		Version:    f.Version,
		InternalKey: restserver.InternalKey{
			Enabled:    f.InternalAPIKey.Enabled,
			HeaderName: f.InternalAPIKey.Name,
			Secret:     f.InternalAPIKey.Key,
		},
	}
	if !f.TerminateTLS.Enabled {
		return config, nil
	}
	cert, err := ioutil.ReadFile(f.TerminateTLS.CertificateFile)
	if err != nil {
		return config, err
	}
	key, err := ioutil.ReadFile(f.TerminateTLS.PrivateKeyFile)
	if err != nil {
		return config, err
	}
	config.TLS = &restserver.TLSMaterial{Certificate: cert, PrivateKey: key}
	return config, nil
}

// Gateway returns the API gateway options.
func (f *File) Gateway() apigw.Options {
	return apigw.Options{
		GatewayURL: f.APIGateway.URL,
		APIKey:     f.APIGateway.APIKey,
		APIKeyName: f.APIGateway.APIKeyName,
	}
}

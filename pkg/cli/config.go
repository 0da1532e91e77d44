/*
Package cli facilitates building command-line tools that check firmware images. It defines a
[Config] type that registers common command-line flags (using the Golang flag package) and their
environment variable equivalents.

# Examples

	config, err := cli.NewConfig()
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds -image, -registry-file, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables

	auth, err := config.Authenticator()
	if err != nil {
		panic(err)
	}
	img, err := config.Image()
	if err != nil {
		panic(err)
	}
	if auth.SignaturesOK(img, nil) != bootloader.SigOK {
		os.Exit(1)
	}

Without a registry file, [Config.Registry] returns the production signer registry.
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skycoin/bootauth/internal/log"
	"github.com/skycoin/bootauth/pkg/bootloader"
	"github.com/skycoin/bootauth/pkg/flash"
	"github.com/skycoin/bootauth/pkg/registry"
)

// Environment variable names used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvBootauthImage            = "BOOTAUTH_IMAGE"
	EnvBootauthRegistryFile     = "BOOTAUTH_REGISTRY_FILE"
	EnvBootauthSignatureProtect = "BOOTAUTH_SIGNATURE_PROTECT"
	EnvBootauthParallel         = "BOOTAUTH_PARALLEL"
	EnvBootauthVerbose          = "BOOTAUTH_VERBOSE"
	EnvBootauthLogLevel         = "BOOTAUTH_LOG_LEVEL"
)

var ErrNoImageSpecified = errors.New("firmware image location not provided")

var modesByName = map[string]bootloader.EnforcementMode{
	"1":        bootloader.Enforced,
	"on":       bootloader.Enforced,
	"true":     bootloader.Enforced,
	"enforced": bootloader.Enforced,
	"0":        bootloader.Disabled,
	"off":      bootloader.Disabled,
	"false":    bootloader.Disabled,
	"disabled": bootloader.Disabled,
}

// SignatureProtect translates the -signature-protect argument into a [bootloader.EnforcementMode].
// The zero value is Enforced.
type SignatureProtect struct {
	Mode bootloader.EnforcementMode
	set  bool
}

// Set updates p from a command-line argument.
func (p *SignatureProtect) Set(value string) error {
	mode, ok := modesByName[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return fmt.Errorf("unknown signature protection setting '%s'", value)
	}
	p.Mode = mode
	p.set = true
	return nil
}

func (p *SignatureProtect) String() string {
	return p.Mode.String()
}

// IsBoolFlag allows -signature-protect to be given without a value.
func (p *SignatureProtect) IsBoolFlag() bool {
	return true
}

// LogLevel translates the -log-level argument into a [log.Level]. The zero value is
// log.LevelNone.
type LogLevel struct {
	Level log.Level
	set   bool
}

// Set updates l from a command-line argument.
func (l *LogLevel) Set(value string) error {
	level, err := log.ParseLevel(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	l.Level = level
	l.set = true
	return nil
}

func (l *LogLevel) String() string {
	return log.LevelName(l.Level)
}

// Config fields determine which firmware image is checked and against which signers.
type Config struct {
	ImageFilename    string
	RegistryFilename string // Hex-encoded public keys, one per line. Production keys if empty.
	SignatureProtect SignatureProtect
	Parallel         bool // Recover signer keys concurrently
	Debug            bool // Enable debug logging; overrides LogLevel
	LogLevel         LogLevel

	registry *registry.Registry
}

func NewConfig() (*Config, error) {
	return &Config{}, nil
}

// RegisterFlags adds c's options to fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ImageFilename, "image", "", "Firmware image `file`. Defaults to $BOOTAUTH_IMAGE.")
	fs.StringVar(&c.RegistryFilename, "registry-file", "", "`File` of signer public keys, replacing the production registry. Defaults to $BOOTAUTH_REGISTRY_FILE.")
	fs.Var(&c.SignatureProtect, "signature-protect", "Signature enforcement (on|off). Defaults to $BOOTAUTH_SIGNATURE_PROTECT, or on.")
	fs.BoolVar(&c.Parallel, "parallel", false, "Recover signer keys concurrently. Defaults to $BOOTAUTH_PARALLEL.")
	fs.BoolVar(&c.Debug, "debug", false, "Enable verbose debugging messages. Defaults to $BOOTAUTH_VERBOSE.")
	fs.Var(&c.LogLevel, "log-level", "Log `level` (none|error|warning|info|debug). Defaults to $BOOTAUTH_LOG_LEVEL, or none.")
}

// RegisterCommandLineFlags adds c's options to the default command-line flag set.
func (c *Config) RegisterCommandLineFlags() {
	c.RegisterFlags(flag.CommandLine)
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() prevents the environment from overriding explicit
// command-line parameters.
func (c *Config) ReadFromEnvironment() {
	if c.ImageFilename == "" {
		c.ImageFilename = os.Getenv(EnvBootauthImage)
		log.Debug("Set image file to '%s'", c.ImageFilename)
	}
	if c.RegistryFilename == "" {
		c.RegistryFilename = os.Getenv(EnvBootauthRegistryFile)
		log.Debug("Set registry file to '%s'", c.RegistryFilename)
	}
	if !c.SignatureProtect.set {
		if value, ok := os.LookupEnv(EnvBootauthSignatureProtect); ok {
			if err := c.SignatureProtect.Set(value); err != nil {
				log.Warning("Ignoring $%s: %s", EnvBootauthSignatureProtect, err)
			} else {
				log.Debug("Set signature protection to '%s'", c.SignatureProtect.Mode)
			}
		}
	}
	if !c.Parallel {
		c.Parallel = envBool(EnvBootauthParallel)
		log.Debug("Set parallel recovery to '%v'", c.Parallel)
	}
	if !c.Debug {
		c.Debug = envBool(EnvBootauthVerbose)
	}
	if !c.LogLevel.set {
		if value, ok := os.LookupEnv(EnvBootauthLogLevel); ok {
			if err := c.LogLevel.Set(value); err != nil {
				log.Warning("Ignoring $%s: %s", EnvBootauthLogLevel, err)
			}
		}
	}
}

// ApplyLogLevel sets the global log level from c.
func (c *Config) ApplyLogLevel() {
	if c.Debug {
		log.SetLevel(log.LevelDebug)
		return
	}
	log.SetLevel(c.LogLevel.Level)
}

// envBool treats a set variable as true unless it parses as a false boolean.
func envBool(name string) bool {
	value, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return true
}

// Registry loads the signer registry specified in c. The registry is cached after it is first
// loaded.
func (c *Config) Registry() (*registry.Registry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	if c.RegistryFilename == "" {
		log.Debug("Using production signer registry")
		c.registry = registry.Production()
		return c.registry, nil
	}
	log.Debug("Loading signer registry from %s...", c.RegistryFilename)
	reg, err := registry.LoadFile(c.RegistryFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to load signer registry: %w", err)
	}
	c.registry = reg
	return reg, nil
}

// Authenticator returns a [bootloader.Authenticator] configured from c.
func (c *Config) Authenticator() (*bootloader.Authenticator, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	var options []bootloader.Option
	if c.Parallel {
		options = append(options, bootloader.WithConcurrentRecovery())
	}
	if c.SignatureProtect.Mode == bootloader.Disabled {
		log.Warning("Signature protection is disabled")
	}
	return bootloader.New(reg, c.SignatureProtect.Mode, options...), nil
}

// Image opens c.ImageFilename.
func (c *Config) Image() (*flash.Image, error) {
	if c.ImageFilename == "" {
		return nil, ErrNoImageSpecified
	}
	return c.OpenImage(c.ImageFilename)
}

// OpenImage reads the firmware region stored in filename.
func (c *Config) OpenImage(filename string) (*flash.Image, error) {
	log.Debug("Loading firmware image from %s...", filename)
	img, err := flash.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load firmware image: %w", err)
	}
	return img, nil
}

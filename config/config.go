// Package config provides the configuration of vault program tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/rent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	// Base58 identity of the vault program.
	ProgramID string `yaml:"ProgramID"`
	// Rent model applied on deployment to a fresh ledger.
	Rent rent.Rent `yaml:"Rent"`
	// Ledger storage.
	Storage dbconfig.DBConfiguration `yaml:"Storage"`
	Logger  Logger                   `yaml:"Logger"`
}

// Logger configures the application log.
type Logger struct {
	// One of debug, info, warn, error.
	Level string `yaml:"Level"`
	// Either json or console.
	Encoding string `yaml:"Encoding"`
}

// Default values.
const (
	DefaultLogLevel    = "info"
	DefaultLogEncoding = "console"
)

// Default returns configuration with all default values and no program.
func Default() Config {
	return Config{
		Rent:    rent.Default(),
		Storage: dbconfig.DBConfiguration{Type: dbconfig.InMemoryDB},
		Logger: Logger{
			Level:    DefaultLogLevel,
			Encoding: DefaultLogEncoding,
		},
	}
}

// Load reads configuration from the YAML file. Missing values are set to
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Decode(data)
}

// Decode parses YAML configuration. Unknown fields are rejected.
func Decode(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.ProgramID == "" {
		return errors.New("missing ProgramID")
	}
	if _, err := common.DecodeAddress(c.ProgramID); err != nil {
		return fmt.Errorf("invalid ProgramID: %w", err)
	}
	if err := c.Rent.Validate(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Logger.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding %q", c.Logger.Encoding)
	}
	return nil
}

// Program returns decoded program identity.
func (c Config) Program() (solana.PublicKey, error) {
	return common.DecodeAddress(c.ProgramID)
}

// NewStore opens the configured ledger storage.
func (c Config) NewStore() (storage.Store, error) {
	st, err := storage.NewStore(c.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", c.Storage.Type, err)
	}
	return st, nil
}

// NewLogger builds the configured logger.
func (c Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cc := zap.NewProductionConfig()
	cc.Level = zap.NewAtomicLevelAt(lvl)
	cc.Encoding = c.Logger.Encoding
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cc.Build()
}

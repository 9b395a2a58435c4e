/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/storagemodels"
)

// Backend names a document store implementation.
type Backend string

const (
	BackendCosmos   Backend = "cosmos"
	BackendDynamoDB Backend = "dynamodb"
	BackendMemory   Backend = "memory"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCPROXY_"

// Config identifies the container a proxy binds to.
type Config struct {
	Backend          Backend `yaml:"backend"`
	ConnectionString string  `yaml:"connectionString"`
	DatabaseID       string  `yaml:"databaseId"`
	ContainerID      string  `yaml:"containerId"`
	// VerifyContainer makes construction read the container's properties so a
	// missing database or container fails at startup instead of on first use.
	VerifyContainer bool           `yaml:"verifyContainer"`
	DynamoDB        DynamoDBConfig `yaml:"dynamodb"`
}

// DynamoDBConfig holds settings only the DynamoDB backend reads. The table
// name is Config.ContainerID.
type DynamoDBConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	Endpoint string `yaml:"endpoint"`
	// PartitionKeyAttribute is the table's hash key. Default "_pk".
	PartitionKeyAttribute string `yaml:"partitionKeyAttribute"`
	// IDAttribute is the table's range key. Default "id".
	IDAttribute string `yaml:"idAttribute"`
}

// ClientOptions are the vendor client settings, applied once at construction.
type ClientOptions struct {
	ConsistencyLevel storagemodels.ConsistencyLevel `yaml:"consistencyLevel"`
	PreferredRegions []string                       `yaml:"preferredRegions"`
	MaxRetries       int32                          `yaml:"maxRetries"`
	RetryDelay       time.Duration                  `yaml:"retryDelay"`
	MaxRetryDelay    time.Duration                  `yaml:"maxRetryDelay"`
	// EnableContentResponseOnWrite makes writes echo the persisted document.
	EnableContentResponseOnWrite bool   `yaml:"enableContentResponseOnWrite"`
	ApplicationName              string `yaml:"applicationName"`
}

// File is the on-disk layout of a configuration file.
type File struct {
	Store  Config        `yaml:"store"`
	Client ClientOptions `yaml:"client"`
}

// DefaultClientOptions returns the options used when nothing is configured.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		MaxRetries:                   3,
		RetryDelay:                   800 * time.Millisecond,
		MaxRetryDelay:                60 * time.Second,
		EnableContentResponseOnWrite: true,
	}
}

// Load reads path (if non-empty), then a .env file in the working directory
// (if present), then DOCPROXY_* environment variables. Later sources win.
func Load(path string) (Config, ClientOptions, error) {
	f := File{
		Store:  Config{Backend: BackendCosmos},
		Client: DefaultClientOptions(),
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, ClientOptions{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, ClientOptions{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, ClientOptions{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&f.Store, &f.Client); err != nil {
		return Config{}, ClientOptions{}, err
	}
	return f.Store, f.Client, nil
}

func applyEnv(cfg *Config, opts *ClientOptions) error {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	var backend string
	setString("BACKEND", &backend)
	if backend != "" {
		cfg.Backend = Backend(strings.ToLower(backend))
	}
	setString("CONNECTION_STRING", &cfg.ConnectionString)
	setString("DATABASE_ID", &cfg.DatabaseID)
	setString("CONTAINER_ID", &cfg.ContainerID)
	setString("DYNAMODB_REGION", &cfg.DynamoDB.Region)
	setString("DYNAMODB_ACCESS_KEY_ID", &cfg.DynamoDB.AccessKeyID)
	setString("DYNAMODB_SECRET_ACCESS_KEY", &cfg.DynamoDB.SecretAccessKey)
	setString("DYNAMODB_ENDPOINT", &cfg.DynamoDB.Endpoint)
	setString("APPLICATION_NAME", &opts.ApplicationName)

	var level string
	setString("CONSISTENCY_LEVEL", &level)
	if level != "" {
		opts.ConsistencyLevel = storagemodels.ConsistencyLevel(level)
	}

	var regions string
	setString("PREFERRED_REGIONS", &regions)
	if regions != "" {
		opts.PreferredRegions = nil
		for _, r := range strings.Split(regions, ",") {
			if r = strings.TrimSpace(r); r != "" {
				opts.PreferredRegions = append(opts.PreferredRegions, r)
			}
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MAX_RETRIES"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"MAX_RETRIES", err.Error())
		}
		opts.MaxRetries = int32(n)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "VERIFY_CONTAINER"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"VERIFY_CONTAINER", err.Error())
		}
		cfg.VerifyContainer = b
	}
	return nil
}

// Validate checks that the configuration names a container the backend can resolve.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendCosmos, "":
		if c.ConnectionString == "" {
			return errors.NewValidationError("connectionString", "required for the cosmos backend")
		}
		if c.DatabaseID == "" {
			return errors.NewValidationError("databaseId", "required for the cosmos backend")
		}
	case BackendDynamoDB:
		if c.DynamoDB.Region == "" && c.DynamoDB.Endpoint == "" {
			return errors.NewValidationError("dynamodb.region", "region or endpoint required for the dynamodb backend")
		}
	case BackendMemory:
	default:
		return errors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if c.ContainerID == "" {
		return errors.NewValidationError("containerId", "required")
	}
	return nil
}

// Validate checks option values the vendor clients would reject.
func (o ClientOptions) Validate() error {
	switch o.ConsistencyLevel {
	case "", storagemodels.ConsistencyStrong, storagemodels.ConsistencyBoundedStaleness,
		storagemodels.ConsistencySession, storagemodels.ConsistencyConsistentPrefix,
		storagemodels.ConsistencyEventual:
	default:
		return errors.NewValidationError("consistencyLevel", fmt.Sprintf("unknown consistency level %q", o.ConsistencyLevel))
	}
	if o.MaxRetries < 0 {
		return errors.NewValidationError("maxRetries", "must not be negative")
	}
	return nil
}

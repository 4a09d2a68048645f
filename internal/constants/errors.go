package constants

import "errors"

// CLI configuration errors.
var (
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrNoCredentials      = errors.New("no credentials configured, use 'sensei config set api_key' or set SENSEI_API_KEY")
	ErrEmptySecretInput   = errors.New("no value entered")
	ErrInvalidQueryFormat = errors.New("query must be in key=value form")
	ErrInvalidOutput      = errors.New("output format must be table, json or yaml")
	ErrMissingConfigValue = errors.New("missing configuration value")
	ErrInvalidConfigValue = errors.New("invalid configuration value")
	ErrInvalidID          = errors.New("id must be a positive integer")
)

// File system errors.
var (
	ErrNotRegularFile             = errors.New("path is not a regular file")
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
)

// Package blob selects and re-exports the blob storage drivers.
package blob

import (
	"context"
	"fmt"

	"motoriz/internal/blob/core"
	"motoriz/internal/infra/blob/fs"
	memorystore "motoriz/internal/infra/blob/memory"
	infraS3 "motoriz/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store

	// S3Config configures the s3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotExist    = core.ErrNotExist
	ErrInvalidKey  = core.ErrInvalidKey
)

// Options selects a driver and its settings.
type Options struct {
	Driver  string // fs|s3|memory (default fs)
	FSRoot  string
	BaseURL string // public prefix for fs URLs
	S3      S3Config
}

// Open constructs the configured blob store.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := Driver(opts.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(opts.FSRoot, fs.WithBaseURL(opts.BaseURL))
	case DriverS3:
		return infraS3.New(ctx, opts.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

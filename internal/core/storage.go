package core

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"motoriz/internal/infra/persistence/postgres"
	"motoriz/internal/infra/persistence/remote"
	"motoriz/internal/infra/persistence/sqlite"
	"motoriz/internal/infra/persistence/sqlstore"
	"motoriz/pkg/domain"
)

// StorageDriver identifies a concrete persistence implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // process memory only (tests, demo)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRemote   StorageDriver = "remote"   // Motoriz REST API
)

// Resource paths used by the REST API for each collection.
const (
	ResourceProducts     = "products"
	ResourceCategories   = "categories"
	ResourceProductTypes = "product-types"
	ResourceServices     = "services"
	ResourceTrainings    = "trainings"
	ResourceNews         = "news"
	ResourceReservations = "reservations"
)

// StorageOptions selects and parameterises a driver.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	RemoteURL   string
	// HTTPClient is used by the remote driver; nil selects a default client.
	HTTPClient *http.Client
}

// OpenedBackends is the result of OpenBackends. Closer releases the database
// handle (a no-op for memory and remote). Client is set for the remote
// driver so callers can log in and upload files.
type OpenedBackends struct {
	Backends
	Closer io.Closer
	Client *remote.Client
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenBackends opens the configured driver. An empty driver selects memory.
func OpenBackends(ctx context.Context, opts StorageOptions) (OpenedBackends, error) {
	switch opts.Driver {
	case "", StorageMemory:
		return OpenedBackends{Backends: MemoryBackends(), Closer: nopCloser{}}, nil
	case StorageSQLite:
		db, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return OpenedBackends{}, err
		}
		return OpenedBackends{Backends: SQLBackends(db), Closer: db}, nil
	case StoragePostgres:
		db, err := postgres.Open(ctx, opts.PostgresDSN)
		if err != nil {
			return OpenedBackends{}, err
		}
		return OpenedBackends{Backends: SQLBackends(db), Closer: db}, nil
	case StorageRemote:
		client, err := remote.NewClient(opts.RemoteURL, opts.HTTPClient)
		if err != nil {
			return OpenedBackends{}, err
		}
		return OpenedBackends{Backends: RemoteBackends(client), Closer: nopCloser{}, Client: client}, nil
	default:
		return OpenedBackends{}, fmt.Errorf("unknown storage driver %s", opts.Driver)
	}
}

// SQLBackends returns table backed backends sharing db.
func SQLBackends(db *sqlstore.DB) Backends {
	return Backends{
		Products:     sqlstore.For[domain.Product](db, domain.EntityProduct),
		Categories:   sqlstore.For[domain.Category](db, domain.EntityCategory),
		ProductTypes: sqlstore.For[domain.ProductType](db, domain.EntityProductType),
		Services:     sqlstore.For[domain.Service](db, domain.EntityService),
		Trainings:    sqlstore.For[domain.Training](db, domain.EntityTraining),
		News:         sqlstore.For[domain.NewsArticle](db, domain.EntityNews),
		Reservations: sqlstore.For[domain.Reservation](db, domain.EntityReservation),
	}
}

// RemoteBackends returns backends that forward every mutation to the REST API.
func RemoteBackends(c *remote.Client) Backends {
	return Backends{
		Products:     remote.For[domain.Product](c, domain.EntityProduct, ResourceProducts),
		Categories:   remote.For[domain.Category](c, domain.EntityCategory, ResourceCategories),
		ProductTypes: remote.For[domain.ProductType](c, domain.EntityProductType, ResourceProductTypes),
		Services:     remote.For[domain.Service](c, domain.EntityService, ResourceServices),
		Trainings:    remote.For[domain.Training](c, domain.EntityTraining, ResourceTrainings),
		News:         remote.For[domain.NewsArticle](c, domain.EntityNews, ResourceNews),
		Reservations: remote.For[domain.Reservation](c, domain.EntityReservation, ResourceReservations),
	}
}

package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"motoriz/pkg/domain"
)

// Backend maps one collection onto /<resource> endpoints.
type Backend[T domain.Record[T]] struct {
	client   *Client
	entity   domain.EntityType
	resource string
}

// For returns a backend for entity served under resource (for example "products").
func For[T domain.Record[T]](c *Client, entity domain.EntityType, resource string) *Backend[T] {
	return &Backend[T]{client: c, entity: entity, resource: resource}
}

// Load lists the collection. The server does not report a high-water mark, so
// the store derives it from the returned ids.
func (b *Backend[T]) Load(ctx context.Context) ([]T, domain.ID, error) {
	recs, err := b.Query(ctx, nil)
	return recs, 0, err
}

// Query lists the collection with server-side filters such as search,
// category_id and product_type_id.
func (b *Backend[T]) Query(ctx context.Context, params url.Values) ([]T, error) {
	var out []T
	if err := b.client.do(ctx, http.MethodGet, b.client.endpoint(params, b.resource), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts rec. The server's id wins over the one the store assigned.
func (b *Backend[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	if err := b.client.doJSON(ctx, http.MethodPost, b.client.endpoint(nil, b.resource), rec, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Update puts rec to /<resource>/<id>.
func (b *Backend[T]) Update(ctx context.Context, rec T) (T, error) {
	var out T
	id := rec.RecordID()
	if err := b.client.doJSON(ctx, http.MethodPut, b.client.endpoint(nil, b.resource, id.String()), rec, &out); err != nil {
		var zero T
		return zero, b.mapNotFound(err, id)
	}
	if out.RecordID() == 0 {
		out = rec
	}
	return out, nil
}

// Delete removes /<resource>/<id>. Confirmation already happened client side,
// so the request carries confirm=true.
func (b *Backend[T]) Delete(ctx context.Context, id domain.ID) error {
	target := b.client.endpoint(url.Values{"confirm": {"true"}}, b.resource, id.String())
	return b.mapNotFound(b.client.do(ctx, http.MethodDelete, target, "", nil, nil), id)
}

func (b *Backend[T]) mapNotFound(err error, id domain.ID) error {
	var ne *domain.NetworkError
	if errors.As(err, &ne) && ne.StatusCode == http.StatusNotFound {
		return domain.NotFoundError{Entity: b.entity, ID: id}
	}
	return err
}

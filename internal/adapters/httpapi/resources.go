package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"motoriz/internal/core"
	"motoriz/internal/export"
	"motoriz/internal/form"
	"motoriz/pkg/domain"
)

// resource describes one collection mounted under /api/<name>.
type resource[T domain.Record[T]] struct {
	name    string
	store   *core.Store[T]
	adapter form.Adapter[T]
	// fields drives ?search= when list is nil.
	fields core.FieldsFunc[T]
	// list overrides the default search listing.
	list func(r *http.Request) ([]T, error)
	// remove overrides store.Delete.
	remove func(ctx context.Context, id domain.ID) error
	// export names the CSV domain; empty disables export.csv.
	export string
}

func mount[T domain.Record[T]](s *Server, mux *http.ServeMux, res resource[T]) {
	if res.remove == nil {
		res.remove = res.store.Delete
	}
	if res.list == nil {
		res.list = func(r *http.Request) ([]T, error) {
			return core.Filter(res.store.List(), r.URL.Query().Get("search"), res.fields), nil
		}
	}
	base := "/api/" + res.name
	protect := func(h http.HandlerFunc) http.Handler { return s.auth.RequireAuth(h) }

	mux.Handle("GET "+base, protect(func(w http.ResponseWriter, r *http.Request) {
		items, err := res.list(r)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(items))
	}))

	mux.Handle("POST "+base, protect(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := decodeRecord[T](s, w, r, res.adapter)
		if !ok {
			return
		}
		created, err := res.store.Create(r.Context(), rec)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		s.logger.Info("record created", "entity", res.store.Entity(), "id", created.RecordID())
		writeJSON(w, http.StatusCreated, created)
	}))

	mux.Handle("GET "+base+"/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rec, found := res.store.Get(id)
		if !found {
			s.writeFailure(w, r, domain.NotFoundError{Entity: res.store.Entity(), ID: id})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}))

	mux.Handle("PUT "+base+"/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if _, found := res.store.Get(id); !found {
			s.writeFailure(w, r, domain.NotFoundError{Entity: res.store.Entity(), ID: id})
			return
		}
		rec, ok := decodeRecord[T](s, w, r, res.adapter)
		if !ok {
			return
		}
		updated, err := res.store.Update(r.Context(), id, rec)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		s.logger.Info("record updated", "entity", res.store.Entity(), "id", id)
		writeJSON(w, http.StatusOK, updated)
	}))

	mux.Handle("DELETE "+base+"/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
			writeError(w, http.StatusConflict, "deleting requires confirm=true")
			return
		}
		if err := res.remove(r.Context(), id); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		s.logger.Info("record deleted", "entity", res.store.Entity(), "id", id)
		w.WriteHeader(http.StatusNoContent)
	}))

	if res.export != "" {
		mux.Handle("GET "+base+"/export.csv", protect(func(w http.ResponseWriter, r *http.Request) {
			s.handleExport(w, r, res.export)
		}))
	}
}

// decodeRecord reads a JSON record and runs the form checks on it. It writes
// the error response itself and reports whether the caller may continue.
func decodeRecord[T domain.Record[T]](s *Server, w http.ResponseWriter, r *http.Request, adapter form.Adapter[T]) (T, bool) {
	var rec T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&rec); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is required")
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s payload: %v", adapter.Entity(), err))
		}
		return rec, false
	}
	if err := adapter.Validate(rec); err != nil {
		s.writeFailure(w, r, err)
		return rec, false
	}
	return rec, true
}

func pathID(w http.ResponseWriter, r *http.Request) (domain.ID, bool) {
	id, err := domain.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryID(r *http.Request, key string) (domain.ID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	id, err := domain.ParseID(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be a positive id")
	}
	return id, nil
}

func productQuery(r *http.Request) (core.ProductQuery, error) {
	q := core.ProductQuery{Search: r.URL.Query().Get("search")}
	var err error
	if q.CategoryID, err = queryID(r, "category_id"); err != nil {
		return q, err
	}
	if q.ProductTypeID, err = queryID(r, "product_type_id"); err != nil {
		return q, err
	}
	return q, nil
}

// handleExport renders the filtered view as an attachment. With ?archive=true
// and an archiver configured a copy is also written to blob storage.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, domainName string) {
	q, err := productQuery(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	table, err := export.Build(s.svc, domainName, q)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	data, err := table.Bytes()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	filename := export.Filename(domainName, s.clock.Now())
	if archive, _ := strconv.ParseBool(r.URL.Query().Get("archive")); archive && s.archiver != nil {
		info, err := s.archiver.Archive(r.Context(), filename, data)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		w.Header().Set("X-Export-Archive", info.Key)
	}
	s.metrics.ObserveExport(domainName)
	s.logger.Info("export rendered", "domain", domainName, "rows", len(table.Rows), "file", filename)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(data))
}

// Package remote talks to the Motoriz REST API. It implements domain.Backend
// so the entity stores can run against a server instead of local storage, and
// it exposes the auth and upload calls the admin console needs. There is no
// retry or backoff: every failure is reported to the caller as a
// *domain.NetworkError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"motoriz/pkg/domain"
)

// DefaultTimeout bounds a single request when the caller supplies no client.
const DefaultTimeout = 15 * time.Second

// Client is a bearer-token REST client.
type Client struct {
	base *url.URL
	http *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient returns a client for baseURL (for example http://localhost:8080/api).
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: u, http: httpClient}, nil
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.base
	u.Path = path.Join(append([]string{u.Path}, segments...)...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs the request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, target string, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &domain.NetworkError{Op: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: method, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.NetworkError{Op: method, URL: target, StatusCode: resp.StatusCode, Err: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	if err := decodeEnvelope(raw, out); err != nil {
		return &domain.NetworkError{Op: method, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, target, contentType, body, out)
}

// decodeEnvelope accepts both a bare JSON value and a {"data": ...} wrapper.
func decodeEnvelope(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 {
			return json.Unmarshal(env.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

func errorMessage(r io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Error != "":
			return errors.New(body.Error)
		case body.Message != "":
			return errors.New(body.Message)
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return errors.New(msg)
	}
	return nil
}

// Session is the login response.
type Session struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "auth", "login"), in, &s); err != nil {
		return Session{}, err
	}
	c.SetToken(s.Token)
	return s, nil
}

// File is one file to upload.
type File struct {
	Name string
	Body io.Reader
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// Upload posts a single file as the multipart field "file".
func (c *Client) Upload(ctx context.Context, folder string, f File) (UploadResult, error) {
	var out UploadResult
	err := c.postMultipart(ctx, c.endpoint(nil, "upload", folder), "file", []File{f}, &out)
	return out, err
}

// UploadMany posts several files as the multipart field "files".
func (c *Client) UploadMany(ctx context.Context, folder string, files []File) ([]UploadResult, error) {
	var out []UploadResult
	err := c.postMultipart(ctx, c.endpoint(nil, "upload", folder, "multiple"), "files", files, &out)
	return out, err
}

// DeleteUpload removes a previously uploaded file.
func (c *Client) DeleteUpload(ctx context.Context, folder, filename string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(nil, "upload", folder, filename), "", nil, nil)
}

func (c *Client) postMultipart(ctx context.Context, target, field string, files []File, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, target, mw.FormDataContentType(), &buf, out)
}

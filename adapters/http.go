package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/config"
	"github.com/brettbedarf/dok/internal/util"
)

type HTTPMethod = string

const (
	HTTPMethodGet    HTTPMethod = "GET"
	HTTPMethodPost   HTTPMethod = "POST"
	HTTPMethodDelete HTTPMethod = "DELETE"
)

// Routes of the remote file operations API
const (
	RouteList            = "/list"
	RouteRaw             = "/raw"
	RouteSave            = "/save"
	RouteCreateFile      = "/create-file"
	RouteCreateDirectory = "/create-directory"
	RouteDelete          = "/delete"
	RouteMove            = "/move"
)

// maxErrorBody caps how much of an error response is kept in the TransportError
const maxErrorBody = 512

// HTTPDoer is the subset of *http.Client used by the gateway
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOptions contains http-specific gateway settings
type HTTPOptions struct {
	Headers      map[string]string
	SaveEncoding string        // config.SaveEncodingJSON (default) or config.SaveEncodingForm
	Timeout      time.Duration // 0 disables the client timeout
	Client       HTTPDoer      // Overrides the default *http.Client
}

// HTTPGateway implements [dok.Gateway] against the remote HTTP API
type HTTPGateway struct {
	base         *url.URL
	headers      map[string]string
	saveEncoding string
	client       HTTPDoer
}

var _ dok.Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway validates baseURL and returns a gateway for it
func NewHTTPGateway(baseURL string, opts HTTPOptions) (*HTTPGateway, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	enc := opts.SaveEncoding
	if enc == "" {
		enc = config.SaveEncodingJSON
	}
	if enc != config.SaveEncodingJSON && enc != config.SaveEncodingForm {
		return nil, fmt.Errorf("unsupported save encoding %q", enc)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPGateway{
		base:         base,
		headers:      opts.Headers,
		saveEncoding: enc,
		client:       client,
	}, nil
}

// NewHTTPGatewayFromConfig builds the gateway from the runtime config
func NewHTTPGatewayFromConfig(cfg *config.Config) (dok.Gateway, error) {
	return NewHTTPGateway(cfg.ServerURL, HTTPOptions{
		Headers:      cfg.Headers,
		SaveEncoding: cfg.SaveEncoding,
		Timeout:      cfg.Timeout(),
	})
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty server URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.User != nil {
		return nil, fmt.Errorf("invalid server URL %q: user info not allowed", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	return u, nil
}

func (h *HTTPGateway) List(ctx context.Context, path string) ([]dok.Entry, error) {
	resp, err := h.do(ctx, "list", path, HTTPMethodGet, RouteList, url.Values{"path": {path}}, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []dok.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &dok.TransportError{Op: "list", Path: path, Err: fmt.Errorf("decode listing: %w", err)}
	}
	if entries == nil {
		// fetched and empty is not the same as never fetched
		entries = []dok.Entry{}
	}
	return entries, nil
}

func (h *HTTPGateway) ReadRaw(ctx context.Context, path string) (string, error) {
	resp, err := h.do(ctx, "raw", path, HTTPMethodGet, RouteRaw, url.Values{"path": {path}}, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &dok.TransportError{Op: "raw", Path: path, Err: err}
	}
	return string(data), nil
}

func (h *HTTPGateway) Write(ctx context.Context, path, content string) error {
	var (
		query       url.Values
		body        io.Reader
		contentType string
	)
	switch h.saveEncoding {
	case config.SaveEncodingForm:
		query = url.Values{"path": {path}}
		body = strings.NewReader(url.Values{"content": {content}}.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		payload, err := json.Marshal(struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}{path, content})
		if err != nil {
			return fmt.Errorf("encode save body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return h.exec(ctx, "save", path, HTTPMethodPost, RouteSave, query, body, contentType)
}

func (h *HTTPGateway) CreateFile(ctx context.Context, path string) error {
	return h.exec(ctx, "create-file", path, HTTPMethodPost, RouteCreateFile, url.Values{"path": {path}}, nil, "")
}

func (h *HTTPGateway) CreateDirectory(ctx context.Context, path string) error {
	return h.exec(ctx, "create-directory", path, HTTPMethodPost, RouteCreateDirectory, url.Values{"path": {path}}, nil, "")
}

func (h *HTTPGateway) Delete(ctx context.Context, path string) error {
	return h.exec(ctx, "delete", path, HTTPMethodDelete, RouteDelete, url.Values{"path": {path}}, nil, "")
}

func (h *HTTPGateway) Move(ctx context.Context, source, destination string) error {
	q := url.Values{"source": {source}, "destination": {destination}}
	return h.exec(ctx, "move", source, HTTPMethodPost, RouteMove, q, nil, "")
}

// exec performs a request whose response body is not needed
func (h *HTTPGateway) exec(ctx context.Context, op, path string, method HTTPMethod, route string, query url.Values, body io.Reader, contentType string) error {
	resp, err := h.do(ctx, op, path, method, route, query, body, contentType)
	if err != nil {
		return err
	}
	// drain so the connection can be reused
	io.Copy(io.Discard, resp.Body) // nolint:errcheck
	return resp.Body.Close()
}

// do sends a request and maps failures onto the error taxonomy.
// On success the caller owns resp.Body.
func (h *HTTPGateway) do(ctx context.Context, op, path string, method HTTPMethod, route string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	logger := util.GetLogger("HTTPGateway." + op)

	req, err := h.newRequest(ctx, method, route, query, body)
	if err != nil {
		return nil, &dok.TransportError{Op: op, Path: path, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	logger.Trace().Str("method", method).Str("url", req.URL.String()).Msg("Sending request")

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Request failed")
		return nil, &dok.TransportError{Op: op, Path: path, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	logger.Debug().Int("status", resp.StatusCode).Str("path", path).Str("body", string(msg)).Msg("Remote returned error status")
	if resp.StatusCode == http.StatusNotFound {
		return nil, &dok.NotFoundError{Op: op, Path: path}
	}
	var cause error
	if text := strings.TrimSpace(string(msg)); text != "" {
		cause = errors.New(text)
	}
	return nil, &dok.TransportError{Op: op, Path: path, StatusCode: resp.StatusCode, Err: cause}
}

func (h *HTTPGateway) newRequest(ctx context.Context, method HTTPMethod, route string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *h.base
	u.Path = h.base.Path + route
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	// Add custom headers
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

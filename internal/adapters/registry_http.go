package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// HTTPRegistry is the network ports.RegistryPort backend, used when a
// registry URL is configured: a package registry reached over
// net/http with bearer-token auth. Each request is a single attempt;
// a failed request is not retried.
type HTTPRegistry struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	client   *http.Client
}

const defaultRegistryTimeout = 30 * time.Second

// NewHTTPRegistry builds an HTTPRegistry against endpoint (no trailing
// slash required).
func NewHTTPRegistry(endpoint, token string, timeout time.Duration) *HTTPRegistry {
	if timeout <= 0 {
		timeout = defaultRegistryTimeout
	}
	return &HTTPRegistry{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Token:    token,
		Timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *HTTPRegistry) Filename() string { return "package.yaml" }

// LoadConfig applies rc-file/env overrides: a configured
// registry URL or network timeout supersedes the defaults this adapter
// was constructed with. The auth token is left as constructed.
func (h *HTTPRegistry) LoadConfig(cfg types.Config) error {
	if cfg.Registry != "" {
		h.Endpoint = strings.TrimRight(cfg.Registry, "/")
	}
	if cfg.NetworkTimeout > 0 {
		h.Timeout = cfg.NetworkTimeout
		h.client.Timeout = cfg.NetworkTimeout
	}
	return nil
}

type registryVersionsResponse struct {
	Versions []string `json:"versions"`
}

type registryManifestResponse struct {
	Manifest  types.Manifest `json:"manifest"`
	Resolved  string         `json:"resolved"`
	Integrity string         `json:"integrity"`
}

func (h *HTTPRegistry) AvailableVersions(ctx context.Context, name string) ([]string, error) {
	url := fmt.Sprintf("%s/%s", h.Endpoint, pathEscapePackageName(name))
	body, err := h.getJSON(ctx, url)
	if err != nil {
		return nil, err
	}
	var payload registryVersionsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, core.NewNetworkError("decoding version list for "+name, err)
	}
	if len(payload.Versions) == 0 {
		return nil, core.NewConstraintError(fmt.Sprintf("no published versions for %s", name), nil)
	}
	return payload.Versions, nil
}

func (h *HTTPRegistry) FetchManifest(ctx context.Context, name, version string) (types.Manifest, types.RemoteDescriptor, error) {
	url := fmt.Sprintf("%s/%s/%s", h.Endpoint, pathEscapePackageName(name), version)
	body, err := h.getJSON(ctx, url)
	if err != nil {
		return types.Manifest{}, types.RemoteDescriptor{}, err
	}
	var payload registryManifestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return types.Manifest{}, types.RemoteDescriptor{}, core.NewNetworkError("decoding manifest for "+name+"@"+version, err)
	}
	remote := types.RemoteDescriptor{Type: "registry", Resolved: payload.Resolved, Integrity: payload.Integrity}
	return payload.Manifest, remote, nil
}

func (h *HTTPRegistry) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewUnexpectedError("building registry request", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, core.NewNetworkError("contacting registry at "+url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, core.NewConstraintError("registry returned 404 for "+url, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewNetworkError("registry request failed", fmt.Errorf("status=%d url=%s body=%s", resp.StatusCode, url, strings.TrimSpace(string(body))))
	}
	return body, nil
}

func pathEscapePackageName(name string) string {
	return strings.ReplaceAll(name, "/", "%2F")
}

var _ ports.RegistryPort = (*HTTPRegistry)(nil)

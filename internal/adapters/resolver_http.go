package adapters

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// HTTPResolver implements ports.PackageResolverPort for a bare
// "http://"/"https://" range pointing directly at a tarball. Extracting
// that tarball to read its manifest is fetch/extract work this
// resolver does not perform (an external collaborator's job per the
// contract); instead it confirms the URL is reachable and derives a
// version from the tarball file name, or "0.0.0" when the name carries
// none, the same
// "skeleton wired to net/http" shape as HTTPRegistry.
type HTTPResolver struct {
	Timeout time.Duration
	client  *http.Client
}

func NewHTTPResolver(timeout time.Duration) HTTPResolver {
	if timeout <= 0 {
		timeout = defaultRegistryTimeout
	}
	return HTTPResolver{Timeout: timeout, client: &http.Client{Timeout: timeout}}
}

var tarballVersionPattern = regexp.MustCompile(`-([0-9]+\.[0-9]+\.[0-9]+[^/]*)\.(tgz|tar\.gz)$`)

func (h HTTPResolver) Resolve(ctx context.Context, name, rangeStr string) (ports.ResolvedPackage, error) {
	client := h.client
	if client == nil {
		client = &http.Client{Timeout: defaultRegistryTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rangeStr, nil)
	if err != nil {
		return ports.ResolvedPackage{}, core.NewUnexpectedError("building http: request for "+name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return ports.ResolvedPackage{}, core.NewNetworkError("reaching "+rangeStr, err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = h.confirmViaGet(ctx, client, rangeStr)
		if err != nil {
			return ports.ResolvedPackage{}, err
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.ResolvedPackage{}, core.NewNetworkError(
			"fetching "+rangeStr, fmt.Errorf("status=%d", resp.StatusCode))
	}

	version := versionFromTarballURL(rangeStr)
	integrity := ""
	if etag := resp.Header.Get("ETag"); etag != "" {
		integrity = "etag-" + strings.Trim(etag, `"`)
	}

	manifest := types.Manifest{Name: name, Version: version}
	remote := types.RemoteDescriptor{Type: "http", Resolved: rangeStr, Integrity: integrity}
	return ports.ResolvedPackage{Version: version, Manifest: manifest, Remote: remote}, nil
}

func (h HTTPResolver) confirmViaGet(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewUnexpectedError("building http: request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, core.NewNetworkError("reaching "+url, err)
	}
	resp.Body.Close()
	return resp, nil
}

func versionFromTarballURL(url string) string {
	base := path.Base(url)
	if m := tarballVersionPattern.FindStringSubmatch(base); len(m) >= 2 {
		return m[1]
	}
	return "0.0.0"
}

var _ ports.PackageResolverPort = HTTPResolver{}

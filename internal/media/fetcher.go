package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"

	"argus/internal/config"
	"argus/internal/constants"
)

// Fetcher downloads media references ahead of content addressing. Bodies are
// read through a hard size cap so one oversized attachment cannot exhaust
// worker memory.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher(cfg config.MediaConfig) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMediaMaxBytes
	}

	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch returns the blob bytes and the file extension (with dot, possibly
// empty) derived from the reference path or the response content type.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, "", fmt.Errorf("media fetch returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("media exceeds size cap of %d bytes", f.maxBytes)
	}

	return data, resolveExt(ref, resp.Header.Get("Content-Type")), nil
}

func resolveExt(ref, contentType string) string {
	if parsed, err := url.Parse(ref); err == nil {
		if ext := path.Ext(parsed.Path); ext != "" {
			return ext
		}
	}

	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

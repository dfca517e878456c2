package imagefetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const maxImageBytes = 20 << 20

// Fetcher downloads image bytes over HTTP. Local blob-store URLs and
// remote photo URLs go through the same path.
type Fetcher struct {
	httpClient *http.Client
}

func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create image request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}

	return data, imageMIMEType(resp.Header.Get("Content-Type"), data), nil
}

// imageMIMEType trusts the Content-Type header when it names an image and
// sniffs the bytes otherwise.
func imageMIMEType(header string, data []byte) string {
	if header != "" {
		if parsed, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(parsed, "image/") {
			return parsed
		}
	}
	return http.DetectContentType(data)
}

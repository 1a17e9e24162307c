package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// HTTPCheck returns a CheckFunc that probes {endpoint}/health. Any 2xx
// response means connected; any other status is a backend-signaled
// failure; transport errors pass through as disconnection.
func HTTPCheck(client *http.Client, endpoint string) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimRight(endpoint, "/") + "/health"

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &BackendError{StatusCode: resp.StatusCode}
		}
		return nil
	}
}

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AngelCh415/adbrain/internal/models"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, c HTTPClient, url string, v any) error {
	if url == "" {
		return errors.New("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(v)
}

// RemoteReader fetches org snapshots from the data service at
// GET {base}/orgs/{orgID}/snapshot?from=YYYY-MM-DD&to=YYYY-MM-DD.
// One request per fetch, no retries.
type RemoteReader struct {
	c    HTTPClient
	base string
}

func NewRemoteReader(c HTTPClient, baseURL string) *RemoteReader {
	return &RemoteReader{c: c, base: strings.TrimRight(baseURL, "/")}
}

func (r *RemoteReader) FetchOrgMetrics(ctx context.Context, orgID string, w models.Window) (*models.OrgSnapshot, error) {
	q := url.Values{}
	if !w.From.IsZero() {
		q.Set("from", w.From.Format(dateLayout))
	}
	if !w.To.IsZero() {
		q.Set("to", w.To.Format(dateLayout))
	}
	u := r.base + "/orgs/" + url.PathEscape(orgID) + "/snapshot"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var b Batch
	if err := getJSON(ctx, r.c, u, &b); err != nil {
		return nil, err
	}
	snap, _ := Normalize(b)
	snap.OrgID = orgID
	return snap, nil
}

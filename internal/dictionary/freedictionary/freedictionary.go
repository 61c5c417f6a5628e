// Package freedictionary checks words against dictionaryapi.dev.
package freedictionary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.dictionaryapi.dev"

type Client struct {
	BaseURL  string
	Language string
	http     *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Language: "en", http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) Lookup(ctx context.Context, word string) (bool, error) {
	u := fmt.Sprintf("%s/api/v2/entries/%s/%s", c.BaseURL, c.Language, url.PathEscape(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode/100 == 2:
		return true, nil
	default:
		return false, fmt.Errorf("freedictionary status %d", resp.StatusCode)
	}
}

// Package datamuse checks words against the Datamuse API.
package datamuse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.datamuse.com"

type Client struct {
	BaseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
}

// Lookup reports whether Datamuse's best spelling match for word is word itself.
func (c *Client) Lookup(ctx context.Context, word string) (bool, error) {
	q := url.Values{}
	q.Set("sp", word)
	q.Set("md", "d")
	q.Set("max", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/words?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("datamuse status %d", resp.StatusCode)
	}
	var out []struct {
		Word  string   `json:"word"`
		Score int      `json:"score"`
		Defs  []string `json:"defs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, nil
	}
	return strings.EqualFold(out[0].Word, word), nil
}

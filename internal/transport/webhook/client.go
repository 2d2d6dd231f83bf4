// Package webhook implements senders for JSON-over-HTTP notification
// endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendpush/internal/transport"
)

// maxBody bounds how much of a response is read for acknowledgement parsing.
const maxBody = 64 << 10

// NewHTTPClient returns a client for webhook calls. proxy may be empty.
// Deadlines come from the caller's context; timeout is a backstop.
func NewHTTPClient(proxy string, timeout time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(proxy); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("webhook: invalid proxy %q: %w", proxy, err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

type response struct {
	status int
	body   []byte
}

func post(ctx context.Context, c *http.Client, target string, contentType string, body []byte, hdr map[string]string) (response, error) {
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := c.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return response{status: resp.StatusCode}, err
	}
	return response{status: resp.StatusCode, body: b}, nil
}

func postJSON(ctx context.Context, c *http.Client, target string, payload any) (response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return response{}, err
	}
	return post(ctx, c, target, "application/json", b, nil)
}

// snippet trims a response body for diagnostics.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return s
}

func failure(err error) transport.Result {
	return transport.Rejected(err.Error())
}

func httpFailure(r response) transport.Result {
	diag := fmt.Sprintf("http %d", r.status)
	if s := snippet(r.body); s != "" {
		diag += ": " + s
	}
	if r.status == http.StatusTooManyRequests {
		return transport.Throttled(diag)
	}
	return transport.Rejected(diag)
}

// codeAck is the {"errcode":0,"errmsg":"ok"} family of acknowledgements.
type codeAck struct {
	ErrCode       *int   `json:"errcode"`
	ErrMsg        string `json:"errmsg"`
	Code          *int   `json:"code"`
	Msg           string `json:"msg"`
	Message       string `json:"message"`
	StatusCode    *int   `json:"StatusCode"`
	StatusMessage string `json:"StatusMessage"`
}

func decodeAck(b []byte) (codeAck, error) {
	var a codeAck
	if err := json.Unmarshal(b, &a); err != nil {
		return a, fmt.Errorf("decode acknowledgement: %w", err)
	}
	return a, nil
}

func is(p *int, v int) bool { return p != nil && *p == v }

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

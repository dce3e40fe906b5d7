package panos

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is an error response from the XML API.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return "panos: " + e.Message
	}
	return fmt.Sprintf("panos: code %s: %s", e.Code, e.Message)
}

// ClientOptions configure the HTTP transport of a Client.
type ClientOptions struct {
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client talks to the XML API of one firewall.
type Client struct {
	Host       string
	HTTPClient *http.Client

	endpoint string
	apiKey   string
}

// NewClient returns a client for host, which may be a bare address or a
// URL with scheme.
func NewClient(host, apiKey string, opts ClientOptions) *Client {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		Host:       host,
		HTTPClient: &http.Client{Transport: transport, Timeout: opts.Timeout},
		endpoint:   strings.TrimRight(base, "/") + "/api/",
		apiKey:     apiKey,
	}
}

type response struct {
	XMLName xml.Name `xml:"response"`
	Status  string   `xml:"status,attr"`
	Code    string   `xml:"code,attr"`
	Msg     *message `xml:"msg"`
	Result  *result  `xml:"result"`
}

type message struct {
	Lines []string `xml:"line"`
	Text  string   `xml:",chardata"`
}

func (m *message) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, len(m.Lines)+1)
	if t := strings.TrimSpace(m.Text); t != "" {
		parts = append(parts, t)
	}
	for _, l := range m.Lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "; ")
}

type result struct {
	Inner []byte   `xml:",innerxml"`
	Msg   *message `xml:"msg"`
}

// Op runs an operational command and returns the inner XML of the result.
func (c *Client) Op(ctx context.Context, cmd string) ([]byte, error) {
	return c.do(ctx, url.Values{"type": {"op"}, "cmd": {cmd}})
}

// Get returns the candidate configuration at xpath.
func (c *Client) Get(ctx context.Context, xpath string) ([]byte, error) {
	return c.do(ctx, url.Values{"type": {"config"}, "action": {"get"}, "xpath": {xpath}})
}

// Set merges element into the candidate configuration at xpath.
func (c *Client) Set(ctx context.Context, xpath, element string) error {
	_, err := c.do(ctx, url.Values{"type": {"config"}, "action": {"set"}, "xpath": {xpath}, "element": {element}})
	return err
}

// Edit replaces the node at xpath with element.
func (c *Client) Edit(ctx context.Context, xpath, element string) error {
	_, err := c.do(ctx, url.Values{"type": {"config"}, "action": {"edit"}, "xpath": {xpath}, "element": {element}})
	return err
}

func (c *Client) do(ctx context.Context, params url.Values) ([]byte, error) {
	slog.Debug("PAN-OS API request", "host", c.Host, "type", params.Get("type"), "action", params.Get("action"), "xpath", params.Get("xpath"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-PAN-KEY", c.apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", c.Host, err)
	}

	var r response
	if err := xml.Unmarshal(body, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s returned HTTP %d", c.Host, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode response from %s: %w", c.Host, err)
	}
	if r.Status != "success" {
		msg := r.Msg.String()
		if msg == "" && r.Result != nil {
			msg = r.Result.Msg.String()
		}
		if msg == "" {
			msg = fmt.Sprintf("request failed with HTTP %d", resp.StatusCode)
		}
		return nil, &APIError{Code: r.Code, Message: msg}
	}
	if r.Result == nil {
		return nil, nil
	}
	return r.Result.Inner, nil
}

// decodeResult unmarshals the inner XML of a <result> element into v.
func decodeResult(inner []byte, v any) error {
	doc := make([]byte, 0, len(inner)+17)
	doc = append(doc, "<result>"...)
	doc = append(doc, inner...)
	doc = append(doc, "</result>"...)
	return xml.Unmarshal(doc, v)
}

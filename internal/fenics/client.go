// Package fenics talks to the FENICS FX option pricing service. Requests
// and responses are XML documents exchanged through a form POST.
package fenics

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/pkg/metrics"
)

var ErrNotConfigured = errors.New("fenics pricing api url is not configured")

// Fields is the flattened name/value list of a pricing response.
type Fields map[string]string

// QueryError is a response without a data section. Errors holds the
// service's option element as decoded from XML.
type QueryError struct {
	Errors any
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("fenics rejected the query: %v", e.Errors)
}

type Client struct {
	http     *http.Client
	url      string
	username string
	password string
	now      func() time.Time
}

func NewClient(cfg config.FenicsConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		url:      cfg.PricingAPIURL,
		username: cfg.Username,
		password: cfg.Password,
		now:      time.Now,
	}
}

// Vanilla prices a vanilla option. Spot and forward rates come back with
// every vanilla response.
func (c *Client) Vanilla(ctx context.Context, q VanillaQuery) (Fields, error) {
	now := c.now()
	body, err := c.encodeRequest(q.TransactionID, q.fields(now), now)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, "vanilla", body)
}

func (c *Client) Barrier(ctx context.Context, q BarrierQuery) (Fields, error) {
	fields, err := q.fields()
	if err != nil {
		return nil, err
	}
	body, err := c.encodeRequest(q.TransactionID, fields, c.now())
	if err != nil {
		return nil, err
	}
	return c.send(ctx, "barrier", body)
}

func (c *Client) send(ctx context.Context, query string, payload []byte) (Fields, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	fields, err := c.post(ctx, payload)
	outcome := "ok"
	var qe *QueryError
	switch {
	case errors.As(err, &qe):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.PricingLatency.WithLabelValues(query, outcome).Observe(time.Since(start).Seconds())
	if err != nil && qe == nil {
		logger.LogError(ctx, err, "fenics request failed", "query", query)
	}
	return fields, err
}

func (c *Client) post(ctx context.Context, payload []byte) (Fields, error) {
	form := "xml=" + url.QueryEscape(string(payload))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fenics returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return parseResponse(raw)
}

type gfiResponse struct {
	XMLName xml.Name `xml:"gfi_message"`
	Body    struct {
		Data *struct {
			Fields []xmlField `xml:"node>field"`
		} `xml:"data"`
		Response struct {
			Option []node `xml:"option"`
		} `xml:"response"`
	} `xml:"body"`
}

func parseResponse(raw []byte) (Fields, error) {
	var doc gfiResponse
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode fenics response: %w", err)
	}
	if doc.Body.Data == nil {
		return nil, &QueryError{Errors: collapse(doc.Body.Response.Option)}
	}
	out := make(Fields, len(doc.Body.Data.Fields))
	for _, f := range doc.Body.Data.Fields {
		out[f.Name] = f.Value
	}
	return out, nil
}

// node is a loosely typed XML element, used for the free-form error section.
type node struct {
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []child    `xml:",any"`
}

type child struct {
	XMLName xml.Name
	node
}

// value renders the element like a JSON document: attributes as "@name",
// children by tag (repeated tags become lists) and text as "#text". A bare
// text element is just its string.
func (n node) value() any {
	text := strings.TrimSpace(n.Text)
	if len(n.Attrs) == 0 && len(n.Children) == 0 {
		if text == "" {
			return nil
		}
		return text
	}
	out := map[string]any{}
	for _, a := range n.Attrs {
		out["@"+a.Name.Local] = a.Value
	}
	grouped := map[string][]node{}
	var order []string
	for _, c := range n.Children {
		name := c.XMLName.Local
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], c.node)
	}
	for _, name := range order {
		out[name] = collapse(grouped[name])
	}
	if text != "" {
		out["#text"] = text
	}
	return out
}

func collapse(nodes []node) any {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0].value()
	}
	list := make([]any, len(nodes))
	for i, n := range nodes {
		list[i] = n.value()
	}
	return list
}

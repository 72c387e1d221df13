package oracle

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bank/internal/model/enum"
	"bank/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultRequestTimeout = 15 * time.Second
	maxFaultBodySize      = 64 << 10
)

// HTTPConfig configures the JSON/HTTP oracle client.
type HTTPConfig struct {
	Endpoint       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

var _ Oracle = (*HTTPClient)(nil)

// HTTPClient talks to the trading service over JSON/HTTP.
type HTTPClient struct {
	cfg     HTTPConfig
	base    *url.URL
	client  *http.Client
	timeout time.Duration
}

type quotesRequest struct {
	Symbols []string `json:"symbols"`
}

type quotesResponse struct {
	Quotes []Quote `json:"quotes"`
}

type orderRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
	Side     string `json:"side"`
}

type orderResponse struct {
	PricePerShare decimal.NullDecimal `json:"pricePerShare"`
}

type faultResponse struct {
	Fault *Fault `json:"fault"`
}

// NewHTTPClient builds a client with the connect timeout on the dialer and the
// request timeout on every call.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, exception.Invalid("oracle endpoint is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "parse oracle endpoint %q", cfg.Endpoint)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout

	return &HTTPClient{
		cfg:  cfg,
		base: base,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		timeout: cfg.RequestTimeout,
	}, nil
}

func (c *HTTPClient) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	var data quotesResponse
	if err := c.do(ctx, http.MethodPost, "/quotes", nil, quotesRequest{Symbols: symbols}, &data); err != nil {
		return nil, err
	}
	return data.Quotes, nil
}

func (c *HTTPClient) FindByName(ctx context.Context, term string) ([]Quote, error) {
	query := url.Values{}
	query.Set("name", term)

	var data quotesResponse
	if err := c.do(ctx, http.MethodGet, "/quotes/search", query, nil, &data); err != nil {
		return nil, err
	}
	return data.Quotes, nil
}

func (c *HTTPClient) Buy(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	return c.order(ctx, symbol, quantity, enum.SideBuy)
}

func (c *HTTPClient) Sell(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	return c.order(ctx, symbol, quantity, enum.SideSell)
}

func (c *HTTPClient) order(ctx context.Context, symbol string, quantity int64, side enum.Side) (decimal.Decimal, error) {
	var data orderResponse
	body := orderRequest{Symbol: symbol, Quantity: quantity, Side: side.String()}
	if err := c.do(ctx, http.MethodPost, "/orders", nil, body, &data); err != nil {
		return decimal.Zero, err
	}
	if !data.PricePerShare.Valid {
		return decimal.Zero, errors.Wrapf(exception.ErrUnavailable, "no price returned for %s order of %s", side, symbol)
	}
	return data.PricePerShare.Decimal, nil
}

// do performs one call and classifies every failure before returning it.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := sonic.ConfigFastest.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal oracle request")
		}
		reader = bytes.NewReader(payload)
	}

	u := *c.base
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	r, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(exception.ErrUnavailable, err.Error())
	}
	r.Header.Set("Accept", "application/json")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Username != "" {
		r.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.client.Do(r)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Status: resp.StatusCode}
		var fault faultResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxFaultBodySize))
		if len(raw) != 0 && sonic.ConfigFastest.Unmarshal(raw, &fault) == nil {
			se.Fault = fault.Fault
		}
		return Classify(se)
	}

	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(exception.ErrUnavailable, "decode oracle response %s %s: %v", method, path, err)
	}
	return nil
}

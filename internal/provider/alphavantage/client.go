package alphavantage

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const baseURL = "https://www.alphavantage.co"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient is a client for the Alpha Vantage query API.
type APIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// APIClientOption is a configuration option for the Alpha Vantage API client.
type APIClientOption func(*APIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) APIClientOption {
	return func(c *APIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) APIClientOption {
	return func(c *APIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewAPIClient creates a new Alpha Vantage API client.
func NewAPIClient(key string, options ...APIClientOption) (*APIClient, error) {
	var client = &APIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if key != "" {
		// Alpha Vantage authenticates through the apikey query parameter.
		// https://www.alphavantage.co/documentation/
		client.query.Add("apikey", key)
	}
	for _, option := range options {
		option(client)
	}

	if client.httpClient == nil {
		return nil, errors.New("alphavantage: nil HTTP client")
	}
	client.baseURL = strings.TrimRight(client.baseURL, "/")
	u, err := url.Parse(client.baseURL)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("alphavantage: base URL %q must be an absolute http(s) URL", client.baseURL)
	}
	return client, nil
}

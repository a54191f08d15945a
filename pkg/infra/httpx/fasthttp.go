package httpx

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout             = 30 * time.Second
	DefaultMaxConnsPerHost     = 512
	DefaultMaxIdleConnDuration = 10 * time.Second
	DefaultMaxResponseBodySize = 16 * 1024 * 1024
)

//go:generate mockery --name=Client --dir=. --output=./mocks --filename=http_client_mock.go --case=underscore --with-expecter
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

type FastHTTPClientOptions struct {
	Timeout             time.Duration
	MaxConnsPerHost     int
	MaxIdleConnDuration time.Duration
	MaxResponseBodySize int
	UserAgent           string
}

type FastHTTPClientOption func(*FastHTTPClientOptions)

func WithTimeout(timeout time.Duration) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.Timeout = timeout
	}
}

func WithMaxConnsPerHost(max int) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.MaxConnsPerHost = max
	}
}

func WithUserAgent(userAgent string) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.UserAgent = userAgent
	}
}

// FastHTTPClient adapts fasthttp to the net/http request shape and transparently
// decodes compressed responses.
type FastHTTPClient struct {
	client    *fasthttp.Client
	timeout   time.Duration
	userAgent string
}

func NewFastHTTPClient(opts ...FastHTTPClientOption) Client {
	options := &FastHTTPClientOptions{
		Timeout:             DefaultTimeout,
		MaxConnsPerHost:     DefaultMaxConnsPerHost,
		MaxIdleConnDuration: DefaultMaxIdleConnDuration,
		MaxResponseBodySize: DefaultMaxResponseBodySize,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &FastHTTPClient{
		client: &fasthttp.Client{
			MaxConnsPerHost:     options.MaxConnsPerHost,
			MaxIdleConnDuration: options.MaxIdleConnDuration,
			MaxResponseBodySize: options.MaxResponseBodySize,
			ReadTimeout:         options.Timeout,
			WriteTimeout:        options.Timeout,
		},
		timeout:   options.Timeout,
		userAgent: options.UserAgent,
	}
}

func (c *FastHTTPClient) Do(req *http.Request) (*http.Response, error) {
	fastReq := fasthttp.AcquireRequest()
	fastResp := fasthttp.AcquireResponse()
	owned := true
	defer func() {
		if owned {
			fasthttp.ReleaseRequest(fastReq)
			fasthttp.ReleaseResponse(fastResp)
		}
	}()

	if req.URL != nil {
		fastReq.SetRequestURI(req.URL.String())
	}
	fastReq.Header.SetMethod(req.Method)

	for key, values := range req.Header {
		for i, value := range values {
			if i == 0 {
				fastReq.Header.Set(key, value)
			} else {
				fastReq.Header.Add(key, value)
			}
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		fastReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept-Encoding") == "" {
		fastReq.Header.Set("Accept-Encoding", AcceptEncoding)
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		fastReq.SetBodyRaw(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := req.Context().Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	ctx := req.Context()
	if ctx.Done() == nil {
		if err := c.client.DoDeadline(fastReq, fastResp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done := make(chan error, 1)
		go func() { done <- c.client.DoDeadline(fastReq, fastResp, deadline) }()
		select {
		case <-ctx.Done():
			// the in-flight call still uses both objects; release them once it returns
			owned = false
			go func() {
				<-done
				fasthttp.ReleaseRequest(fastReq)
				fasthttp.ReleaseResponse(fastResp)
			}()
			return nil, ctx.Err()
		case err := <-done:
			if err != nil {
				return nil, err
			}
		}
	}

	decoded, changed, err := DecodeChain(string(fastResp.Header.Peek(fasthttp.HeaderContentEncoding)), fastResp.Body())
	if err != nil {
		return nil, err
	}
	bodyCopy := make([]byte, len(decoded))
	copy(bodyCopy, decoded)

	headers := make(http.Header)
	fastResp.Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})
	if changed {
		headers.Del("Content-Encoding")
		headers.Del("Content-Length")
	}

	statusCode := fastResp.StatusCode()
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(bodyCopy)),
		ContentLength: int64(len(bodyCopy)),
		Request:       req,
	}, nil
}

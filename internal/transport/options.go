package transport

import (
	"net/http"
	"net/url"
	"strconv"
)

type requestOptions struct {
	query   url.Values
	headers http.Header
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

// WithQuery adds a query parameter. Empty values are skipped.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		if value == "" {
			return
		}
		o.query.Add(key, value)
	}
}

// WithQueryInt adds an integer query parameter. Non-positive values are
// skipped.
func WithQueryInt(key string, value int) RequestOption {
	return func(o *requestOptions) {
		if value <= 0 {
			return
		}
		o.query.Add(key, strconv.Itoa(value))
	}
}

// WithQueryValues merges a prepared set of query parameters.
func WithQueryValues(values url.Values) RequestOption {
	return func(o *requestOptions) {
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.headers.Set(key, value)
	}
}

func collectOptions(opts []RequestOption) requestOptions {
	o := requestOptions{query: url.Values{}, headers: http.Header{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

package download

import (
	"net/url"
	"time"
)

// Request describes a single GET against one URL.
type Request struct {
	URL     *url.URL // parsed target; when nil, Raw is parsed at fetch time
	Raw     string   // URL as it appeared in the input
	Referer string   // optional; sent as the Referer header when non-empty
}

// String returns the URL as given in the input, or the parsed URL when no
// raw form was recorded.
func (r Request) String() string {
	if r.Raw != "" {
		return r.Raw
	}
	if r.URL != nil {
		return r.URL.String()
	}
	return ""
}

// Result is the payload of a successful fetch.
type Result struct {
	Filename string // filename hint; empty when neither the response nor the URL offers one
	Data     []byte
}

// Options configure a Client.
type Options struct {
	Timeout   time.Duration // per-request timeout; 0 disables it
	UserAgent string        // if empty, DefaultUserAgent is used
}

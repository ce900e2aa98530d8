package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Transport returns an http.RoundTripper that routes every request through
// Fetch under the given platform. SDK clients built on it inherit SSRF
// gating, size limits, retry and circuit breaking.
//
// HTTP error statuses are returned as synthesized responses rather than
// errors so SDKs can build their own typed errors from them. Request bodies
// are not forwarded; the SDK calls made through this transport are reads.
func (f *Fetcher) Transport(platform string) http.RoundTripper {
	return &roundTripper{fetcher: f, platform: platform}
}

type roundTripper struct {
	fetcher  *Fetcher
	platform string
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_ = req.Body.Close()
	}

	resp, err := rt.fetcher.Fetch(req.Context(), Request{
		URL:      req.URL.String(),
		Method:   req.Method,
		Headers:  req.Header.Clone(),
		Platform: rt.platform,
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == KindHTTPError {
			return synthesize(req, fe.StatusCode, fe.Header, nil), nil
		}
		return nil, err
	}
	return synthesize(req, resp.StatusCode, resp.Header, resp.Body), nil
}

func synthesize(req *http.Request, code int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

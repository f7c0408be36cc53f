package fixflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/fixflow/internal/deadline"
)

// pathParam renders a simple-style path parameter, escaped for the path.
func pathParam(name string, value any) (string, error) {
	s, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", fmt.Errorf("fixflow: encode path param %s: %w", name, err)
	}
	return s, nil
}

// queryParam adds a form-style query parameter to q, allocating q if nil.
func queryParam(q url.Values, name string, value any) (url.Values, error) {
	if q == nil {
		q = url.Values{}
	}
	frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return nil, fmt.Errorf("fixflow: encode query param %s: %w", name, err)
	}
	parsed, err := url.ParseQuery(frag)
	if err != nil {
		return nil, fmt.Errorf("fixflow: parse query param %s: %w", name, err)
	}
	for k, vs := range parsed {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return q, nil
}

// endpoint resolves an operation path (already escaped) beneath the base URL.
func (c *Client) endpoint(opPath string, query url.Values) (*url.URL, error) {
	u, err := c.base.Parse("./" + opPath)
	if err != nil {
		return nil, fmt.Errorf("fixflow: build url for %s: %w", opPath, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// do sends one request under its own deadline and decodes a 2xx JSON body
// into out. out == nil discards the body.
//
// If the transport fails after the deadline fired the failure becomes a
// *TimeoutError; any other transport error is returned as is. Non-2xx
// responses become a *StatusError and out is left untouched.
func (c *Client) do(ctx context.Context, op operation, method string, u *url.URL, in, out any) (err error) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() { c.obs.observe(op.name, requestID, start, err) }()

	var body io.Reader
	if in != nil {
		buf, merr := json.Marshal(in)
		if merr != nil {
			return fmt.Errorf("fixflow: encode %s request: %w", op.name, merr)
		}
		body = bytes.NewReader(buf)
	}

	dl := deadline.Arm(ctx, c.cfg.timeout, c.cfg.clock)
	defer dl.Release()

	req, err := http.NewRequestWithContext(dl.Context(), method, u.String(), body)
	if err != nil {
		return fmt.Errorf("fixflow: build %s request: %w", op.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.cfg.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.cfg.doer.Do(req)
	if err != nil {
		if dl.Expired() {
			return &TimeoutError{Op: op.name, Timeout: dl.Timeout()}
		}
		return err //nolint:wrapcheck // transport errors propagate unchanged
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
		if dl.Expired() {
			return &TimeoutError{Op: op.name, Timeout: dl.Timeout()}
		}
		return fmt.Errorf("fixflow: decode %s response: %w", op.name, derr)
	}
	return nil
}

// Package httprest implements storage.Provider against a generic object
// store that exposes a plain HTTP PUT/GET/DELETE/HEAD surface instead of a
// vendor SDK. Built on valyala/fasthttp for a low-allocation client, since
// this backend is the one most likely to be hammered by many concurrent
// workers against a single gateway.
package httprest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/storage"
)

const propsHeaderPrefix = "X-Props-"

// Provider speaks to a REST gateway at BaseURL. Spaces are the first path
// segment, content ids the remainder; listing is a JSON array returned by
// GET <base>/<space>?marker=...&limit=....
type Provider struct {
	client  *fasthttp.Client
	baseURL string
	token   string
}

// New builds a Provider against baseURL (no trailing slash), authenticating
// with a bearer token when non-empty.
func New(baseURL, token string) *Provider {
	return &Provider{
		client:  &fasthttp.Client{Name: "dupmill-httprest"},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

var _ storage.Provider = (*Provider)(nil)

func (p *Provider) url(parts ...string) string {
	return p.baseURL + "/" + strings.Join(parts, "/")
}

func (p *Provider) do(ctx context.Context, method, url string, body io.Reader) (*fasthttp.Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if body != nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		req.SetBody(data)
	}

	var timeout = fasthttpDefaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := dl.Sub(nowFn()); d > 0 {
			timeout = d
		}
	}
	if err := p.client.DoTimeout(req, resp, timeout); err != nil {
		fasthttp.ReleaseResponse(resp)
		return nil, err
	}
	return resp, nil
}

func (p *Provider) SpaceExists(ctx context.Context, spaceID string) (bool, error) {
	resp, err := p.do(ctx, fasthttp.MethodHead, p.url(spaceID), nil)
	if err != nil {
		return false, err
	}
	defer fasthttp.ReleaseResponse(resp)
	return resp.StatusCode() == fasthttp.StatusOK, nil
}

func (p *Provider) CreateSpace(ctx context.Context, spaceID string) error {
	resp, err := p.do(ctx, fasthttp.MethodPut, p.url(spaceID), nil)
	if err != nil {
		return err
	}
	defer fasthttp.ReleaseResponse(resp)
	if sc := resp.StatusCode(); sc != fasthttp.StatusOK && sc != fasthttp.StatusCreated && sc != fasthttp.StatusConflict {
		return fmt.Errorf("httprest: create space %q: status %d", spaceID, sc)
	}
	return nil
}

func (p *Provider) DeleteSpace(ctx context.Context, spaceID string) error {
	resp, err := p.do(ctx, fasthttp.MethodDelete, p.url(spaceID), nil)
	if err != nil {
		return err
	}
	defer fasthttp.ReleaseResponse(resp)
	return statusErr(resp.StatusCode(), "delete space", spaceID)
}

func (p *Provider) SpaceEmpty(ctx context.Context, spaceID string) (bool, error) {
	ids, err := p.ListSpaceChunk(ctx, spaceID, "", 1)
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

func (p *Provider) ListSpaceChunk(ctx context.Context, spaceID, marker string, limit int) ([]string, error) {
	url := p.url(spaceID) + "?marker=" + marker + "&limit=" + strconv.Itoa(limit)
	resp, err := p.do(ctx, fasthttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer fasthttp.ReleaseResponse(resp)
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("httprest: list %q: status %d", spaceID, resp.StatusCode())
	}
	var ids []string
	if err := json.Unmarshal(resp.Body(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Provider) ListSpace(ctx context.Context, spaceID string, cb func(string) error) error {
	return storage.PageAll(ctx, func(ctx context.Context, marker string, limit int) ([]string, error) {
		return p.ListSpaceChunk(ctx, spaceID, marker, limit)
	}, cb)
}

func (p *Provider) GetContentProperties(ctx context.Context, spaceID, contentID string) (map[string]string, error) {
	resp, err := p.do(ctx, fasthttp.MethodHead, p.url(spaceID, contentID), nil)
	if err != nil {
		return nil, err
	}
	defer fasthttp.ReleaseResponse(resp)
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return nil, cmn.ErrNotFound
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("httprest: head %q/%q: status %d", spaceID, contentID, resp.StatusCode())
	}
	props := make(map[string]string)
	resp.Header.VisitAll(func(k, v []byte) {
		key := string(k)
		if strings.HasPrefix(key, propsHeaderPrefix) {
			propKey := strings.ToLower(strings.TrimPrefix(key, propsHeaderPrefix))
			props[propKey] = string(v)
		}
	})
	return props, nil
}

func (p *Provider) GetContent(ctx context.Context, spaceID, contentID string) (io.ReadCloser, error) {
	resp, err := p.do(ctx, fasthttp.MethodGet, p.url(spaceID, contentID), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		fasthttp.ReleaseResponse(resp)
		return nil, cmn.ErrNotFound
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		defer fasthttp.ReleaseResponse(resp)
		return nil, fmt.Errorf("httprest: get %q/%q: status %d", spaceID, contentID, resp.StatusCode())
	}
	body := append([]byte(nil), resp.Body()...)
	fasthttp.ReleaseResponse(resp)
	return io.NopCloser(newReader(body)), nil
}

func (p *Provider) PutContent(ctx context.Context, spaceID, contentID, mimetype string, props map[string]string, _ int64, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url(spaceID, contentID))
	req.Header.SetMethod(fasthttp.MethodPut)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if mimetype != "" {
		req.Header.SetContentType(mimetype)
	}
	for k, v := range props {
		req.Header.Set(propsHeaderPrefix+k, v)
	}
	req.SetBody(data)

	if err := p.client.DoTimeout(req, resp, fasthttpDefaultTimeout); err != nil {
		return "", err
	}
	if resp.StatusCode() != fasthttp.StatusOK && resp.StatusCode() != fasthttp.StatusCreated {
		return "", fmt.Errorf("httprest: put %q/%q: status %d", spaceID, contentID, resp.StatusCode())
	}
	return string(resp.Header.Peek("ETag")), nil
}

// SetContentProperties updates contentID's properties via a headers-only
// PATCH, so the gateway never sees the content bytes again.
func (p *Provider) SetContentProperties(ctx context.Context, spaceID, contentID string, props map[string]string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url(spaceID, contentID))
	req.Header.SetMethod(fasthttp.MethodPatch)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	for k, v := range props {
		req.Header.Set(propsHeaderPrefix+k, v)
	}

	if err := p.client.DoTimeout(req, resp, fasthttpDefaultTimeout); err != nil {
		return err
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return cmn.ErrNotFound
	}
	return statusErr(resp.StatusCode(), "set content properties", spaceID+"/"+contentID)
}

func (p *Provider) DeleteContent(ctx context.Context, spaceID, contentID string) error {
	resp, err := p.do(ctx, fasthttp.MethodDelete, p.url(spaceID, contentID), nil)
	if err != nil {
		return err
	}
	defer fasthttp.ReleaseResponse(resp)
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return cmn.ErrNotFound
	}
	return statusErr(resp.StatusCode(), "delete content", spaceID+"/"+contentID)
}

func statusErr(code int, op, target string) error {
	if code == fasthttp.StatusOK || code == fasthttp.StatusNoContent {
		return nil
	}
	return fmt.Errorf("httprest: %s %q: status %d", op, target, code)
}

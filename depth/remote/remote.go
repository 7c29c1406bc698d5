// Package remote 把前向推理转发给远端推理服务。
//
// 协议：POST JSON {"shape": [...], "data": [...]}，响应结构相同。
package remote

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chaos-io/depthserve/depth"
	nhttp "github.com/chaos-io/depthserve/util/http"
)

type tensorPayload struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

type Model struct {
	url     string
	timeout time.Duration
	cli     nhttp.IClient
}

func New(rawURL string, timeout time.Duration) (*Model, error) {
	return NewWithClient(rawURL, timeout, nhttp.NewHTTPClient())
}

func NewWithClient(rawURL string, timeout time.Duration, cli nhttp.IClient) (*Model, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("remote model url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote model url: unsupported scheme %q", u.Scheme)
	}
	return &Model{url: u.String(), timeout: timeout, cli: cli}, nil
}

func (m *Model) Forward(ctx context.Context, in depth.Tensor) (depth.Tensor, error) {
	resp := &tensorPayload{}
	reqParam := &nhttp.RequestParam{
		RequestURI: m.url,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       tensorPayload{Shape: in.Shape, Data: in.Data},
		Response:   resp,
		Timeout:    m.timeout,
	}
	if err := m.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return depth.Tensor{}, fmt.Errorf("remote inference: %w", err)
	}
	return depth.NewTensor(resp.Shape, resp.Data)
}

func (m *Model) Close() error {
	return nil
}

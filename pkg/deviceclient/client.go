package deviceclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

const (
	PathScriptControl = "/script/control"
	PathSwitchSet     = "/rpc/Switch.Set"
	PathSwitchClear   = "/rpc/Switch.ClearOverride"
	PathSwitchStatus  = "/rpc/Switch.GetStatus"
	PathLegacyRelay   = "/relay/0"
)

// SwitchStatus is the answer of Switch.GetStatus.
type SwitchStatus struct {
	ID     int  `json:"id"`
	Output bool `json:"output"`
}

// Client reaches the local HTTP surface of relay devices. Addresses are
// host or host:port, plain http.
type Client struct {
	http   *resty.Client
	scheme string
}

func New(timeout time.Duration) *Client {
	return &Client{
		http:   resty.New().SetTimeout(timeout),
		scheme: "http",
	}
}

func (c *Client) url(address string, path string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimRight(address, "/") + path
	}
	return c.scheme + "://" + address + path
}

func (c *Client) get(ctx context.Context, address string, path string, query map[string]string, out any) error {
	req := c.http.R().SetContext(ctx).SetQueryParams(query)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Get(c.url(address, path))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s %s: %s", address, path, resp.Status())
	}

	common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTControl).
		Debug("Device call", zap.String("address", address), zap.String("path", path),
			zap.Int("status", resp.StatusCode()), zap.Duration("took", resp.Time()))
	return nil
}

func (c *Client) Wake(ctx context.Context, address string, path string) error {
	return c.get(ctx, address, path, nil, nil)
}

func (c *Client) ScriptControl(ctx context.Context, address string, action models.ControlAction) error {
	return c.get(ctx, address, PathScriptControl, map[string]string{"action": string(action)}, nil)
}

func (c *Client) RPCSetSwitch(ctx context.Context, address string, action models.ControlAction) error {
	if action == models.ControlClear {
		return c.get(ctx, address, PathSwitchClear, map[string]string{"id": "0"}, nil)
	}
	return c.get(ctx, address, PathSwitchSet, map[string]string{
		"id": "0",
		"on": strconv.FormatBool(action == models.ControlOn),
	}, nil)
}

func (c *Client) LegacyRelay(ctx context.Context, address string, action models.ControlAction) error {
	turn := string(action)
	if action == models.ControlClear {
		turn = "auto"
	}
	return c.get(ctx, address, PathLegacyRelay, map[string]string{"turn": turn}, nil)
}

func (c *Client) GetStatus(ctx context.Context, address string) (*models.LiveStatus, error) {
	var status SwitchStatus
	if err := c.get(ctx, address, PathSwitchStatus, map[string]string{"id": "0"}, &status); err != nil {
		return nil, err
	}
	return &models.LiveStatus{Reachable: true, Output: status.Output}, nil
}

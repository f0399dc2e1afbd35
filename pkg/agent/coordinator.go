package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

// Coordinator is what the agent needs from the coordinator.
type Coordinator interface {
	PullSnapshot(ctx context.Context) (*models.Snapshot, error)
	SendHeartbeat(ctx context.Context, hb *models.Heartbeat) error
}

type CoordinatorClient struct {
	http     *resty.Client
	deviceID string
}

func NewCoordinatorClient(baseURL string, deviceID string, timeout time.Duration) *CoordinatorClient {
	return &CoordinatorClient{
		http:     resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
		deviceID: deviceID,
	}
}

// classify leaves transport failures and 5xx retryable, a 4xx will not get
// better by asking again.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("coordinator: %s", resp.Status())
	}
	if resp.StatusCode() >= 400 {
		return common.Permanent(fmt.Errorf("coordinator: %s: %s", resp.Status(), strings.TrimSpace(resp.String())))
	}
	return nil
}

func (c *CoordinatorClient) PullSnapshot(ctx context.Context) (*models.Snapshot, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/devices/" + url.PathEscape(c.deviceID) + "/config")
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(resp.Body(), &snapshot); err != nil {
		return nil, common.Permanent(fmt.Errorf("%w: decoding snapshot: %v", common.ErrValidation, err))
	}
	return &snapshot, nil
}

func (c *CoordinatorClient) SendHeartbeat(ctx context.Context, hb *models.Heartbeat) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(hb).
		Post("/devices/" + url.PathEscape(c.deviceID) + "/heartbeat")
	return classify(resp, err)
}

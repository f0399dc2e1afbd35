package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const PushoverURL = "https://api.pushover.net/1/messages.json"

type Pushover struct {
	token   string
	userKey string
	url     string
	http    *resty.Client
}

func NewPushover(token, userKey string) *Pushover {
	return &Pushover{
		token:   token,
		userKey: userKey,
		url:     PushoverURL,
		http:    resty.New().SetTimeout(10 * time.Second),
	}
}

// WithURL points the client at another endpoint.
func (p *Pushover) WithURL(url string) *Pushover {
	p.url = url
	return p
}

func (p *Pushover) Notify(ctx context.Context, message string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":   p.token,
			"user":    p.userKey,
			"message": message,
			"title":   "Relay sync",
		}).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("pushover error: %s", resp.Status())
	}
	return nil
}

func (p *Pushover) Close() error { return nil }

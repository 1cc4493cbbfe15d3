package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"stockwatch/internal/config"
	"stockwatch/internal/logbus"
)

// PushoverClient posts messages to the Pushover HTTP API.
type PushoverClient struct {
	cfg config.PushoverConfig
	bus *logbus.Bus
	rc  *resty.Client
}

func NewPushover(cfg config.PushoverConfig, bus *logbus.Bus) *PushoverClient {
	rc := resty.New().SetTimeout(cfg.Timeout())
	return &PushoverClient{cfg: cfg, bus: bus, rc: rc}
}

func (c *PushoverClient) Push(ctx context.Context, message string, pri Priority, title string) error {
	if strings.TrimSpace(c.cfg.APIToken) == "" || strings.TrimSpace(c.cfg.UserKey) == "" {
		return errors.New("pushover tokens not configured")
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":    c.cfg.APIToken,
			"user":     c.cfg.UserKey,
			"message":  message,
			"title":    title,
			"priority": strconv.Itoa(int(pri)),
		}).
		Post(c.cfg.Endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("pushover responded %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	c.bus.Log("info", "notification sent", map[string]any{
		"title":    title,
		"priority": int(pri),
	})
	return nil
}

// Package settings is a thin client for the settings service: the
// Roster's PINConfirmer collaborator, used to gate removal of a
// system-installed app behind a user PIN prompt. Grounded on the bus
// client pattern in original_source/src/setting/Settings.cpp and
// original_source/src/bus/client/LSM.cpp (a single-purpose luna service
// client issuing one call and reading its reply).
package settings

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
)

const uriConfirmPIN = "luna://com.webos.service.pinlock/confirmAppRemoval"

// Client issues PIN confirmation requests against the settings/pinlock
// service before a protected app is uninstalled.
type Client struct {
	bus    busx.Bus
	logger log.Logger
}

// New builds a Client backed by bus.
func New(bus busx.Bus, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{bus: bus, logger: logger}
}

// Confirm implements roster.PINConfirmer: it asks pinlock whether the
// user confirmed removal of appID and returns that answer.
func (c *Client) Confirm(appID string) (bool, error) {
	_, replies, err := c.bus.CallOneReply(context.Background(), uriConfirmPIN, map[string]any{
		"id": appID,
	})
	if err != nil {
		return false, fmt.Errorf("confirm removal of %s: %w", appID, err)
	}

	reply := <-replies
	if reply.Err != nil {
		return false, fmt.Errorf("confirm removal of %s: %w", appID, reply.Err)
	}

	confirmed, _ := reply.Payload["confirmed"].(bool)
	return confirmed, nil
}

// Package installer is a thin client for the appinstalld service: the
// Roster's Uninstaller collaborator. The actual install/upgrade protocol
// is out of scope here (the core only consumes status notifications);
// this package only issues the remove call and reports its outcome.
// Grounded on original_source/src/core/module/subscriber_of_appinstalld.cpp.
package installer

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/log"
)

const uriRemove = "luna://com.webos.appInstallService/remove"

// Client issues uninstall requests against appinstalld.
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

// Uninstall implements roster.Uninstaller: it asks appinstalld to remove
// appID and waits for its single reply.
func (c *Client) Uninstall(appID string, requiresPIN bool) error {
	_, replies, err := c.bus.CallOneReply(context.Background(), uriRemove, map[string]any{
		"id":          appID,
		"requiresPIN": requiresPIN,
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", appID, err)
	}

	reply := <-replies
	if reply.Err != nil {
		return fmt.Errorf("remove %s: %w", appID, reply.Err)
	}

	if ok, _ := reply.Payload["returnValue"].(bool); !ok {
		errText, _ := reply.Payload["errorText"].(string)
		if errText == "" {
			errText = "appinstalld refused the request"
		}
		return fmt.Errorf("remove %s: %s", appID, errText)
	}
	return nil
}

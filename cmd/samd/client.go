package main

import (
	"context"
	"fmt"

	"github.com/webosose/sam-sub002/internal/busx"
	"github.com/webosose/sam-sub002/internal/config"
	"github.com/webosose/sam-sub002/internal/log"
)

// callRPC opens a short-lived bus connection and issues a single call
// against the already-running samd, for the CLI's read-only subcommands.
func callRPC(ctx context.Context, method string, payload map[string]any) (map[string]any, error) {
	userMode := flagUserMode || config.IsUserMode()

	conn, err := busx.Connect(ctx, userMode)
	if err != nil {
		return nil, fmt.Errorf("connect to bus: %w", err)
	}
	defer conn.Close()

	bus := busx.NewDBusBus(conn, log.Nop())
	uri := "luna://" + config.Defaults().ServiceName + "/" + method

	_, replies, err := bus.CallOneReply(ctx, uri, payload)
	if err != nil {
		return nil, err
	}
	reply := <-replies
	if reply.Err != nil {
		return nil, reply.Err
	}
	return reply.Payload, nil
}

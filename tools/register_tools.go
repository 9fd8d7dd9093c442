package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"TodoGatewayProject/TodoGateway/auth"
)

// MCPRegisterableTool is implemented by every tool in this package.
type MCPRegisterableTool interface {
	Register(server *mcp.Server)
	Name() string
}

// RegisterAll registers the given tools with the MCP server.
func RegisterAll(server *mcp.Server, logger *zap.Logger, toolList ...MCPRegisterableTool) {
	for _, tool := range toolList {
		tool.Register(server)
		logger.Info("registered tool", zap.String("tool", tool.Name()))
	}
}

// identityFromContext returns the authenticated identity for a tool call.
// The token validator attaches it to the request context before the MCP
// handler runs, so a missing identity means the call arrived on a path
// that skipped authentication.
func identityFromContext(ctx context.Context) (*auth.UserIdentity, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated user for this request")
	}
	return identity, nil
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"TodoGatewayProject/TodoGateway/store"
)

type ListTodos struct {
	store store.UserDataStore
}

func NewListTodos(s store.UserDataStore) *ListTodos {
	return &ListTodos{store: s}
}

func (tool *ListTodos) Name() string { return "list_todos" }

func (tool *ListTodos) listTodos(ctx context.Context, req *mcp.CallToolRequest, params *struct{}) (*mcp.CallToolResult, any, error) {
	identity, err := identityFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	todos, err := tool.store.ListTodos(identity.ObjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list todos: %w", err)
	}

	if len(todos) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "No todos yet."},
			},
		}, todos, nil
	}

	var sb strings.Builder
	for _, todo := range todos {
		status := " "
		if todo.Done {
			status = "x"
		}
		fmt.Fprintf(&sb, "[%s] %s (id: %s)\n", status, todo.Title, todo.ID)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, todos, nil
}

func (tool *ListTodos) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_todos",
		Description: "List the signed-in user's todo items",
	}, tool.listTodos)
}

package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"TodoGatewayProject/TodoGateway/store"
)

type DeleteTodo struct {
	store store.UserDataStore
}

func NewDeleteTodo(s store.UserDataStore) *DeleteTodo {
	return &DeleteTodo{store: s}
}

func (tool *DeleteTodo) Name() string { return "delete_todo" }

type DeleteTodoParams struct {
	ID string `json:"id" jsonschema:"the id of the todo to delete"`
}

func (tool *DeleteTodo) deleteTodo(ctx context.Context, req *mcp.CallToolRequest, params *DeleteTodoParams) (*mcp.CallToolResult, any, error) {
	identity, err := identityFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := tool.store.DeleteTodo(identity.ObjectID, params.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to delete todo: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Deleted."},
		},
	}, nil, nil
}

func (tool *DeleteTodo) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_todo",
		Description: "Delete one of the signed-in user's todos",
	}, tool.deleteTodo)
}

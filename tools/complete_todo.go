package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"TodoGatewayProject/TodoGateway/store"
)

type CompleteTodo struct {
	store store.UserDataStore
}

func NewCompleteTodo(s store.UserDataStore) *CompleteTodo {
	return &CompleteTodo{store: s}
}

func (tool *CompleteTodo) Name() string { return "complete_todo" }

type CompleteTodoParams struct {
	ID string `json:"id" jsonschema:"the id of the todo to mark done"`
}

func (tool *CompleteTodo) completeTodo(ctx context.Context, req *mcp.CallToolRequest, params *CompleteTodoParams) (*mcp.CallToolResult, any, error) {
	identity, err := identityFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	todo, err := tool.store.CompleteTodo(identity.ObjectID, params.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to complete todo: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Completed todo %q", todo.Title)},
		},
	}, todo, nil
}

func (tool *CompleteTodo) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_todo",
		Description: "Mark one of the signed-in user's todos as done",
	}, tool.completeTodo)
}

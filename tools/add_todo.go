package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"TodoGatewayProject/TodoGateway/store"
)

type AddTodo struct {
	store store.UserDataStore
}

func NewAddTodo(s store.UserDataStore) *AddTodo {
	return &AddTodo{store: s}
}

func (tool *AddTodo) Name() string { return "add_todo" }

type AddTodoParams struct {
	Title string `json:"title" jsonschema:"the todo item text"`
}

func (tool *AddTodo) addTodo(ctx context.Context, req *mcp.CallToolRequest, params *AddTodoParams) (*mcp.CallToolResult, any, error) {
	identity, err := identityFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	todo, err := tool.store.AddTodo(identity.ObjectID, params.Title)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to add todo: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Added todo %q (id: %s)", todo.Title, todo.ID)},
		},
	}, todo, nil
}

func (tool *AddTodo) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_todo",
		Description: "Add a todo item to the signed-in user's list",
	}, tool.addTodo)
}

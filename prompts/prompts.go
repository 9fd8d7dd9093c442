package prompts

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// RegisterAll registers all prompts with the MCP server
func RegisterAll(server *mcp.Server, logger *zap.Logger) {
	planPrompt := &mcp.Prompt{
		Name:        "plan-my-day",
		Description: "Review open todos and plan the day",
	}

	server.AddPrompt(planPrompt, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		message := "Please review my open todo items and suggest an order to work through them today.\n\n"
		message += "Use the list_todos tool to fetch my current list, then group related items and flag anything that looks overdue."

		return &mcp.GetPromptResult{
			Description: "Daily planning request",
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: message},
				},
			},
		}, nil
	})
	logger.Info("registered prompt", zap.String("prompt", planPrompt.Name))

	cleanupPrompt := &mcp.Prompt{
		Name:        "clean-up-todos",
		Description: "Tidy the todo list by completing or deleting stale items",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "older_than_days",
				Description: "Flag items created more than this many days ago",
				Required:    false,
			},
		},
	}

	server.AddPrompt(cleanupPrompt, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		olderThan := req.Params.Arguments["older_than_days"]
		if olderThan == "" {
			olderThan = "30"
		}

		message := "Please tidy my todo list.\n\n"
		message += "Use list_todos to fetch everything, then propose which items created more than " + olderThan + " days ago should be completed with complete_todo or removed with delete_todo. Ask before deleting."

		return &mcp.GetPromptResult{
			Description: "Todo cleanup request",
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: message},
				},
			},
		}, nil
	})
	logger.Info("registered prompt", zap.String("prompt", cleanupPrompt.Name))
}

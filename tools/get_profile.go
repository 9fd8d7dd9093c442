package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"TodoGatewayProject/TodoGateway/auth"
)

// DefaultGraphBaseURL is the downstream directory API.
const DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// GetMyProfile fetches the signed-in user's directory profile from the
// downstream API. The gateway token is not valid there, so the tool first
// performs an on-behalf-of exchange for a delegated token.
type GetMyProfile struct {
	obo        *auth.OBOExchanger
	baseURL    string
	httpClient *http.Client
}

func NewGetMyProfile(obo *auth.OBOExchanger, baseURL string) *GetMyProfile {
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	return &GetMyProfile{
		obo:     obo,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (tool *GetMyProfile) Name() string { return "get_my_profile" }

func (tool *GetMyProfile) getProfile(ctx context.Context, req *mcp.CallToolRequest, params *struct{}) (*mcp.CallToolResult, any, error) {
	identity, err := identityFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Delegated consent failures come back here as OBOError; they are
	// tool-level failures, not gateway authentication failures.
	downstreamToken, err := tool.obo.Exchange(ctx, identity.Token, []string{"https://graph.microsoft.com/User.Read"})
	if err != nil {
		return nil, nil, fmt.Errorf("could not obtain delegated token: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, tool.baseURL+"/me", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+downstreamToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := tool.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}

	var profile struct {
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		JobTitle          string `json:"jobTitle"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	text := fmt.Sprintf("%s (%s)", profile.DisplayName, profile.UserPrincipalName)
	if profile.JobTitle != "" {
		text += " - " + profile.JobTitle
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, profile, nil
}

func (tool *GetMyProfile) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_my_profile",
		Description: "Look up the signed-in user's directory profile via the downstream API",
	}, tool.getProfile)
}

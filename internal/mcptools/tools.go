// Package mcptools exposes environment switcher operations as MCP tools so
// agent clients (editors, assistants) can inspect and change the active
// environment over the Model Context Protocol.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"envswitch/internal/manager"
	"envswitch/pkg/logging"
)

const logSubsystem = "MCPTools"

// Tools bridges the environment manager to MCP tool handlers.
type Tools struct {
	mgr *manager.Manager
}

// New creates the tool set over an initialized manager.
func New(mgr *manager.Manager) *Tools {
	return &Tools{mgr: mgr}
}

// ServerTools returns all tool definitions paired with their handlers.
func (t *Tools) ServerTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("env_list",
				mcp.WithDescription("List all known environments with their selection and credential state"),
			),
			Handler: t.handleList,
		},
		{
			Tool: mcp.NewTool("env_current",
				mcp.WithDescription("Get the currently selected environment"),
			),
			Handler: t.handleCurrent,
		},
		{
			Tool: mcp.NewTool("env_switch",
				mcp.WithDescription("Switch to a named environment, optionally supplying credentials"),
				mcp.WithString("name",
					mcp.Required(),
					mcp.Description("Name of the environment to switch to"),
				),
				mcp.WithObject("credentials",
					mcp.Description("Optional credential map (string values) for the target environment"),
				),
			),
			Handler: t.handleSwitch,
		},
		{
			Tool: mcp.NewTool("env_credentials_set",
				mcp.WithDescription("Store credentials for an environment and apply it as the active selection"),
				mcp.WithString("name",
					mcp.Required(),
					mcp.Description("Name of the environment the credentials belong to"),
				),
				mcp.WithObject("credentials",
					mcp.Required(),
					mcp.Description("Credential map (string values) to store"),
				),
			),
			Handler: t.handleCredentialsSet,
		},
		{
			Tool: mcp.NewTool("env_credentials_clear",
				mcp.WithDescription("Clear cached and persisted credentials for one environment, or all of them"),
				mcp.WithString("name",
					mcp.Description("Environment name; omit to clear credentials for every environment"),
				),
			),
			Handler: t.handleCredentialsClear,
		},
		{
			Tool: mcp.NewTool("env_clear_saved",
				mcp.WithDescription("Forget the persisted environment selection (takes effect on next start)"),
			),
			Handler: t.handleClearSaved,
		},
	}
}

type environmentInfo struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	BaseURL             string `json:"baseUrl"`
	Storage             string `json:"storage"`
	RequiresCredentials bool   `json:"requiresCredentials"`
	HasCredentials      bool   `json:"hasCredentials"`
	Current             bool   `json:"current"`
}

func (t *Tools) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := t.mgr.Snapshot()

	infos := make([]environmentInfo, 0, len(snap.Environments))
	for _, env := range snap.Environments {
		infos = append(infos, environmentInfo{
			Name:                env.Name,
			DisplayName:         env.DisplayName,
			BaseURL:             env.BaseURL,
			Storage:             string(env.Storage),
			RequiresCredentials: env.RequiresCredentials,
			HasCredentials:      snap.HasCredentials[env.Name],
			Current:             snap.HasCurrent && env.Name == snap.Current.Name,
		})
	}

	jsonData, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format environments: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (t *Tools) handleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, ok := t.mgr.Current()
	if !ok {
		return mcp.NewToolResultText("No environment selected"), nil
	}

	info := environmentInfo{
		Name:                env.Name,
		DisplayName:         env.DisplayName,
		BaseURL:             env.BaseURL,
		Storage:             string(env.Storage),
		RequiresCredentials: env.RequiresCredentials,
		HasCredentials:      t.mgr.HasCredentials(env.Name),
		Current:             true,
	}
	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format environment: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (t *Tools) handleSwitch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	credentials, err := credentialsArgument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := t.mgr.Switch(ctx, name, credentials); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Switch failed: %v", err)), nil
	}

	logging.Info(logSubsystem, "Switched to environment %q via MCP", name)
	return mcp.NewToolResultText(fmt.Sprintf("Switched to environment %q", name)), nil
}

func (t *Tools) handleCredentialsSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	credentials, err := credentialsArgument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(credentials) == 0 {
		return mcp.NewToolResultError("credentials parameter is required"), nil
	}

	// Storing credentials switches to the environment, the same single
	// mutation path the CLI uses. Re-applies when it is already current.
	if err := t.mgr.Switch(ctx, name, credentials); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Store failed: %v", err)), nil
	}

	logging.Info(logSubsystem, "Stored credentials for environment %q via MCP", name)
	return mcp.NewToolResultText(fmt.Sprintf("Stored %d credential(s) for %q", len(credentials), name)), nil
}

func (t *Tools) handleCredentialsClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		if err := t.mgr.ClearAllCredentials(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Clear failed: %v", err)), nil
		}
		return mcp.NewToolResultText("Cleared credentials for all environments"), nil
	}

	if err := t.mgr.ClearCredentials(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Clear failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared credentials for %q", name)), nil
}

func (t *Tools) handleClearSaved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.mgr.ClearSaved(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Clear failed: %v", err)), nil
	}
	return mcp.NewToolResultText("Cleared saved environment selection"), nil
}

// credentialsArgument extracts the optional string-to-string credentials
// object from the request arguments.
func credentialsArgument(req mcp.CallToolRequest) (map[string]string, error) {
	argsMap, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	raw, ok := argsMap["credentials"]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("credentials must be an object")
	}

	credentials := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("credential %q must be a string", k)
		}
		credentials[k] = s
	}
	return credentials, nil
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/arbitr/internal/coord"
	"github.com/mark3labs/arbitr/internal/detector"
	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/mark3labs/mcp-go/mcp"
)

// handleClaimTry attempts a claim. Rejections return a tool result (not a
// tool error) carrying the conflict, since a conflict is an expected
// outcome the agent must report upward, not a failure of the call.
func (s *Server) handleClaimTry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	agentID, ok := args["agent_id"].(string)
	if !ok || agentID == "" {
		return mcp.NewToolResultError("missing or invalid 'agent_id' parameter"), nil
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("missing or invalid 'path' parameter"), nil
	}
	domain := ""
	if v, ok := args["domain"].(string); ok {
		domain = v
	}

	res, err := s.coordinator.TryClaim(ctx, detector.TryClaimParams{
		AgentID: agentID,
		Path:    path,
		Domain:  domain,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if res.Acquired {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Claim acquired: %s\n  path: %s\n  agent: %s",
			res.Claim.ID, res.Claim.Path, res.Claim.AgentID,
		)), nil
	}

	msg := fmt.Sprintf(
		"Claim rejected: %s\n  conflict: %s\n  path: %s",
		res.Conflict.Kind, res.Conflict.ID, res.Conflict.Path,
	)
	if res.Conflict.HolderClaimID != "" {
		msg += fmt.Sprintf("\n  held by claim: %s", res.Conflict.HolderClaimID)
	}
	if res.Conflict.RightfulDomain != "" {
		msg += fmt.Sprintf("\n  rightful domain: %s", res.Conflict.RightfulDomain)
	}
	msg += "\nDo not retry or work around this. Report the conflict to the orchestrator."
	return mcp.NewToolResultText(msg), nil
}

// handleClaimRelease releases an active claim.
func (s *Server) handleClaimRelease(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	claimID, ok := args["claim_id"].(string)
	if !ok || claimID == "" {
		return mcp.NewToolResultError("missing or invalid 'claim_id' parameter"), nil
	}

	claim, err := s.coordinator.Release(ctx, claimID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Claim released: %s (path %s)", claim.ID, claim.Path)), nil
}

// handleConflictResolve records a conflict resolution.
func (s *Server) handleConflictResolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	conflictID, ok := args["conflict_id"].(string)
	if !ok || conflictID == "" {
		return mcp.NewToolResultError("missing or invalid 'conflict_id' parameter"), nil
	}
	resolutionRaw, ok := args["resolution"].(string)
	if !ok || resolutionRaw == "" {
		return mcp.NewToolResultError("missing or invalid 'resolution' parameter"), nil
	}

	resolution, err := ledger.ParseResolution(resolutionRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conflict, err := s.coordinator.ResolveConflict(ctx, conflictID, resolution)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Conflict resolved: %s\n  path: %s\n  resolution: %s",
		conflict.ID, conflict.Path, conflict.Resolution,
	)), nil
}

// handleDomainOwner answers ownership queries.
func (s *Server) handleDomainOwner(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("missing or invalid 'path' parameter"), nil
	}

	d := s.coordinator.OwnerOf(path)
	if d == nil {
		return mcp.NewToolResultText(fmt.Sprintf("%s is unowned - any agent may edit it", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is owned by domain %q", path, d.Name)), nil
}

// handleLogAppend appends a decision log entry.
func (s *Server) handleLogAppend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	phase, ok := args["phase"].(string)
	if !ok || phase == "" {
		return mcp.NewToolResultError("missing or invalid 'phase' parameter"), nil
	}
	decision, ok := args["decision"].(string)
	if !ok || decision == "" {
		return mcp.NewToolResultError("missing or invalid 'decision' parameter"), nil
	}

	str := func(key string) string {
		if v, ok := args[key].(string); ok {
			return v
		}
		return ""
	}

	entry, err := s.coordinator.AppendDecision(ctx, coord.AppendParams{
		Phase:      phase,
		Decision:   decision,
		Rationale:  str("rationale"),
		Agent:      str("agent"),
		Duration:   str("duration"),
		Checkpoint: str("checkpoint"),
		Findings:   str("findings"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Logged decision #%d [%s]", entry.Seq, entry.Phase)), nil
}

// handleLogQuery returns matching log entries as JSON.
func (s *Server) handleLogQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	phase := ""
	var since int64
	if args != nil {
		if v, ok := args["phase"].(string); ok {
			phase = v
		}
		// JSON numbers come as float64
		if v, ok := args["since"].(float64); ok {
			since = int64(v)
		}
	}

	entries := s.coordinator.Query(phase, since)
	if len(entries) == 0 {
		return mcp.NewToolResultText("No matching entries"), nil
	}

	output, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal entries: %v", err)), nil
	}
	return mcp.NewToolResultText(string(output)), nil
}

// handleSignalSend records an algedonic or escalation signal.
func (s *Server) handleSignalSend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	kind, ok := args["kind"].(string)
	if !ok || kind == "" {
		return mcp.NewToolResultError("missing or invalid 'kind' parameter"), nil
	}
	content, ok := args["content"].(string)
	if !ok || content == "" {
		return mcp.NewToolResultError("missing or invalid 'content' parameter"), nil
	}
	severity := ""
	if v, ok := args["severity"].(string); ok {
		severity = v
	}

	sig, err := s.coordinator.SendSignal(ctx, kind, severity, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Signal recorded: %s (%s)", sig.ID, sig.Kind)), nil
}

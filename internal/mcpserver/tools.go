package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the coordination tools with the MCP server.
// Tool names follow noun-verb so related tools sort together in clients.
func (s *Server) registerTools() error {
	// claim-try: attempt an exclusive claim on a resource path
	s.mcpServer.AddTool(
		mcp.NewTool("claim-try",
			mcp.WithDescription("Attempt an exclusive edit claim on a resource path. Returns the claim on success, or the conflict (OVERLAP or BOUNDARY_VIOLATION) on rejection. Never blocks or retries; report rejections to the orchestrator."),
			mcp.WithString("agent_id", mcp.Required(),
				mcp.Description("Identifier of the claiming agent"),
			),
			mcp.WithString("path", mcp.Required(),
				mcp.Description("Resource path to claim, relative to the workspace root"),
			),
			mcp.WithString("domain",
				mcp.Description("Domain the agent is acting for; required when the path is owned by a domain"),
			),
		),
		s.handleClaimTry,
	)

	// claim-release: release an active claim
	s.mcpServer.AddTool(
		mcp.NewTool("claim-release",
			mcp.WithDescription("Release an active claim, freeing its path for other agents"),
			mcp.WithString("claim_id", mcp.Required(),
				mcp.Description("Claim ID or prefix (8+ chars)"),
			),
		),
		s.handleClaimRelease,
	)

	// conflict-resolve: record the orchestrator's decision on a conflict
	s.mcpServer.AddTool(
		mcp.NewTool("conflict-resolve",
			mcp.WithDescription("Record the orchestrator's decision on a pending conflict. Resolved conflicts are immutable."),
			mcp.WithString("conflict_id", mcp.Required(),
				mcp.Description("Conflict ID or prefix (8+ chars)"),
			),
			mcp.WithString("resolution", mcp.Required(),
				mcp.Description("One of: agent_a_wins, agent_b_wins, escalated, aborted"),
			),
		),
		s.handleConflictResolve,
	)

	// domain-owner: boundary query
	s.mcpServer.AddTool(
		mcp.NewTool("domain-owner",
			mcp.WithDescription("Look up which domain owns a resource path. Unowned paths may be edited by any agent."),
			mcp.WithString("path", mcp.Required(),
				mcp.Description("Resource path to look up"),
			),
		),
		s.handleDomainOwner,
	)

	// log-append: add a decision log entry
	s.mcpServer.AddTool(
		mcp.NewTool("log-append",
			mcp.WithDescription("Append an entry to the session decision log. The sequence number is assigned by the coordinator."),
			mcp.WithString("phase", mcp.Required(),
				mcp.Description("Workflow phase: PREPARE, ARCHITECT, CODE, TEST, REVIEW, or DONE"),
			),
			mcp.WithString("decision", mcp.Required(),
				mcp.Description("What was decided"),
			),
			mcp.WithString("rationale",
				mcp.Description("Why it was decided"),
			),
			mcp.WithString("agent",
				mcp.Description("Agent that made or executed the decision"),
			),
			mcp.WithString("duration",
				mcp.Description("Time spent, free-form (e.g. '45m')"),
			),
			mcp.WithString("checkpoint",
				mcp.Description("Checkpoint reference for the full report"),
			),
			mcp.WithString("findings",
				mcp.Description("Findings or follow-ups for the full report"),
			),
		),
		s.handleLogAppend,
	)

	// log-query: read the decision log
	s.mcpServer.AddTool(
		mcp.NewTool("log-query",
			mcp.WithDescription("Query decision log entries in sequence order, optionally filtered by phase and minimum sequence number"),
			mcp.WithString("phase",
				mcp.Description("Only return entries in this phase"),
			),
			mcp.WithNumber("since",
				mcp.Description("Only return entries with sequence >= this value"),
			),
		),
		s.handleLogQuery,
	)

	// signal-send: algedonic signals
	s.mcpServer.AddTool(
		mcp.NewTool("signal-send",
			mcp.WithDescription("Send an algedonic signal (pain, pleasure) or escalation to the orchestrator"),
			mcp.WithString("kind", mcp.Required(),
				mcp.Description("One of: pain, pleasure, escalation"),
			),
			mcp.WithString("content", mcp.Required(),
				mcp.Description("What happened"),
			),
			mcp.WithString("severity",
				mcp.Description("Severity hint (e.g. low, high)"),
			),
		),
		s.handleSignalSend,
	)

	return nil
}

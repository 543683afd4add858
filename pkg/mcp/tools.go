package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the tuyamon service and its status database"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List catalog devices with their data point mapping (code, type, unit, scale)"),
		),
		s.handleListDevices,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_device",
			mcp.WithDescription("Get one catalog device by name or ID"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Device name or ID"),
			),
		),
		s.handleGetDevice,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_latest_status",
			mcp.WithDescription("Get the most recent saved status of a device, decoded into readable lines"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Device name or ID"),
			),
		),
		s.handleGetLatestStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_history",
			mcp.WithDescription("List saved statuses of a device, newest first"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Device name or ID"),
			),
			mcp.WithString("since",
				mcp.Description("RFC 3339 lower bound (inclusive)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records (default 100)"),
			),
		),
		s.handleGetHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("decode_status",
			mcp.WithDescription("Decode a raw status payload (with a \"dps\" object) using a device's mapping"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Device name or ID whose mapping to use"),
			),
			mcp.WithObject("payload",
				mcp.Required(),
				mcp.Description("Status payload, e.g. {\"dps\": {\"1\": true, \"20\": 2305}, \"t\": 1700000000}"),
			),
		),
		s.handleDecodeStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("decode_phase",
			mcp.WithDescription("Decode a base64 phase record into voltage (V), current (A) and power (kW)"),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("Base64 phase record"),
			),
			mcp.WithNumber("contracted_amps",
				mcp.Description("Contracted current; adds a load percentage when positive"),
			),
		),
		s.handleDecodePhase,
	)
}

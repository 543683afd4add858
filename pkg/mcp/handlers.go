package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	database := "unavailable"
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx); err == nil {
			database = "connected"
		}
	}

	status := "healthy"
	if database != "connected" {
		status = "unhealthy"
	}

	out := GetHealthOutput{
		Status:    status,
		Database:  database,
		Devices:   s.deps.Catalog.Len(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.deps.Catalog.List()
	summaries := make([]device.Summary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].Summarize())
	}

	out := ListDevicesOutput{
		Devices: summaries,
		Count:   len(summaries),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, errResult := s.lookup(request)
	if errResult != nil {
		return errResult, nil
	}

	out := GetDeviceOutput{Device: r.Summarize()}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetLatestStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, errResult := s.lookup(request)
	if errResult != nil {
		return errResult, nil
	}

	rec, err := s.deps.Statuses.Latest(ctx, r.Name)
	if errors.Is(err, db.ErrStatusNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no status saved for %s", r.Name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read status: %s", err)), nil
	}

	out := StatusOutput{
		Device:    r.Name,
		Timestamp: rec.Timestamp.Format(time.RFC3339),
		Status:    rec.Status,
		Lines:     []string{},
	}
	if payload, err := dps.ParsePayload(rec.Status); err == nil {
		if report, err := r.Decoder().Decode(payload); err == nil {
			out.Report = report
			out.Lines = s.deps.Format.Lines(report, r.Name, rec.Timestamp)
		}
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, errResult := s.lookup(request)
	if errResult != nil {
		return errResult, nil
	}

	q := db.StatusQuery{DeviceName: r.Name}
	args := request.GetArguments()
	if since, ok := args["since"].(string); ok && since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid since: %s", err)), nil
		}
		q.Since = t
	}
	if limit, ok := args["limit"].(float64); ok {
		q.Limit = int(limit)
	}

	records, err := s.deps.Statuses.List(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list statuses: %s", err)), nil
	}

	out := HistoryOutput{Device: r.Name, Records: make([]HistoryRecord, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, HistoryRecord{
			ID:        rec.ID,
			Timestamp: rec.Timestamp.Format(time.RFC3339),
			Status:    rec.Status,
		})
	}
	out.Count = len(out.Records)
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleDecodeStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, errResult := s.lookup(request)
	if errResult != nil {
		return errResult, nil
	}

	payload, err := payloadArgument(request, "payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.deps.Validator != nil {
		if err := s.deps.Validator.ValidatePayload(payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", device.ErrValidation, err)), nil
		}
	}

	report, err := r.Decoder().Decode(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to decode status: %s", err)), nil
	}

	out := StatusOutput{
		Device: r.Name,
		Report: report,
		Lines:  s.deps.Format.Lines(report, r.Name, time.Now()),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleDecodePhase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := requiredString(request, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reading, err := dps.DecodePhase(value)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to decode phase record: %s", err)), nil
	}

	out := DecodePhaseOutput{Reading: reading}
	amps := s.deps.Format.ContractedAmps
	if v, ok := request.GetArguments()["contracted_amps"].(float64); ok && v > 0 {
		amps = v
	}
	if amps > 0 {
		load := reading.LoadPercent(amps)
		out.LoadPercent = &load
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

// lookup resolves the "name" argument, returning a tool error result on failure.
func (s *Server) lookup(request mcp.CallToolRequest) (*device.Record, *mcp.CallToolResult) {
	name, err := requiredString(request, "name")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	r, err := s.deps.Catalog.Get(name)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return r, nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

// payloadArgument accepts the payload as an object or as JSON text and
// re-parses it so numbers are handled exactly as device payloads are.
func payloadArgument(request mcp.CallToolRequest, key string) (dps.Payload, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("required parameter %q is missing", key)
	}

	var raw []byte
	switch x := v.(type) {
	case string:
		raw = []byte(x)
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		return nil, fmt.Errorf("parameter %q must be an object", key)
	}

	p, err := dps.ParsePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("parameter %q is not a JSON object: %w", key, err)
	}
	return p, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}

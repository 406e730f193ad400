package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/tbxark/civicdesk/registry"
)

func formatMissingFieldsSection(fields []registry.FieldSpec) string {
	if len(fields) == 0 {
		return "# Missing required fields:\n none"
	}
	var buf strings.Builder
	buf.WriteString("# Missing required fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Pointer", "Description")
	for _, field := range fields {
		_ = table.Append(field.Label, field.Pointer(), field.Description)
	}
	_ = table.Render()
	return buf.String()
}

// FormatToolRequest renders req as the user message of a model prompt.
func FormatToolRequest(req *ToolRequest) (string, error) {
	values := req.Values
	if values == nil {
		values = map[string]any{}
	}
	stateJSON, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	sections := []string{
		fmt.Sprintf("# Current Date: \n %s", time.Now().Format(time.RFC3339)),
	}
	if req.Kind != "" {
		sections = append(sections, fmt.Sprintf("# Submission kind:\n%s", req.Kind))
	}
	sections = append(sections, fmt.Sprintf("# Collected values JSON:\n```json\n%s\n```", string(stateJSON)))
	if req.Schema != "" {
		sections = append(sections, fmt.Sprintf("# Record schema JSON:\n```json\n%s\n```", req.Schema))
	}
	if req.Stage != "" {
		sections = append(sections, fmt.Sprintf("# Current Stage:\n%s", req.Stage))
	}
	if req.MessagePair.Question != "" || req.MessagePair.Answer != "" {
		sections = append(sections, "# Latest Dialogue:")
		if req.MessagePair.Question != "" {
			sections = append(sections, fmt.Sprintf("## Assistant Question:\n%s", req.MessagePair.Question))
		}
		if req.MessagePair.Answer != "" {
			sections = append(sections, fmt.Sprintf("## User Answer:\n%s", req.MessagePair.Answer))
		}
	}
	if req.Kind != "" {
		sections = append(sections, formatMissingFieldsSection(req.MissingFields))
	}
	return strings.Join(sections, "\n\n"), nil
}

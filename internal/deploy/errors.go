package deploy

import (
	"fmt"
	"sort"
	"strings"
)

type serverError struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`
}

// unwrap extracts the original error from a wrapper listing the hosts
// where it occurred.
func (e serverError) unwrap() (id, description string, details map[string]any, nodes []string) {
	id, description, details = e.ID, e.Description, e.Details

	if e.ID != "errorOnNodes" {
		return
	}
	inner, ok := e.Details["error"].(map[string]any)
	if !ok {
		return
	}

	id, _ = inner["id"].(string)
	description, _ = inner["description"].(string)
	details, _ = inner["details"].(map[string]any)
	if hostnames, ok := e.Details["hostnames"].([]any); ok {
		for _, h := range hostnames {
			if s, ok := h.(string); ok {
				nodes = append(nodes, s)
			}
		}
	}
	return
}

// formatServerError renders the structured error of a failed
// deployment task into the operator-facing report.
func formatServerError(e *serverError) string {
	if e == nil {
		return "Error: unexpected server response"
	}

	id, description, details, nodes := e.unwrap()

	var b strings.Builder
	b.WriteString("Error:\n")
	fmt.Fprintf(&b, "  id: %s\n", id)
	if len(nodes) > 0 {
		sort.Strings(nodes)
		b.WriteString("  nodes:\n    ")
		b.WriteString(strings.Join(nodes, "\n    "))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  description: %s\n", description)
	if len(details) > 0 {
		b.WriteString("  details:\n")
		b.WriteString(formatDetails(details, "    "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDetails(details map[string]any, indent string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if nested, ok := details[key].(map[string]any); ok {
			fmt.Fprintf(&b, "%s%s:\n", indent, key)
			b.WriteString(formatDetails(nested, indent+"  "))
			continue
		}
		fmt.Fprintf(&b, "%s%s: %v\n", indent, key, details[key])
	}
	return b.String()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/server"
)

// toolCategories maps a tool name prefix to its section heading.
var toolCategories = map[string]string{
	"calendar": "Calendar Tools",
	"google":   "Google Auth Tools",
}

const otherCategory = "Other"

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate a Markdown reference of every MCP tool calslot registers,
built from the live tool definitions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				return writeToolsDocumentation(cmd.OutOrStdout())
			}
			if err := runGenerateDocs(outputFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func runGenerateDocs(outputFile string) error {
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeToolsDocumentation(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeToolsDocumentation(w io.Writer) error {
	markdown, err := toolsDocumentation()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, markdown)
	return err
}

// toolsDocumentation registers every tool on a server without a calendar
// and renders their definitions.
func toolsDocumentation() (string, error) {
	serverContext, err := server.NewServerContext(context.Background(), server.Options{
		Factory: func(context.Context, string) (calendar.Source, error) {
			return nil, errors.New("no calendar while generating documentation")
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv, err := newMCPServer(serverContext, google.NewFileTokenProvider())
	if err != nil {
		return "", err
	}

	serverTools := mcpSrv.ListTools()

	// Extract mcp.Tool from each ServerTool
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	return generateToolsMarkdown(tools), nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools available when running `calslot serve`. Generated from the tool definitions by `calslot generate-docs`.\n\n")

	byCategory := groupToolsByCategory(tools)
	categories := slices.Sorted(maps.Keys(byCategory))

	sb.WriteString("| Category | Tools |\n|---|---|\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "| [%s](#%s) | %d |\n", category, anchor, len(byCategory[category]))
	}
	sb.WriteString("\n")

	sb.WriteString("Every calendar tool takes an optional `account` argument naming the Google account to read ")
	sb.WriteString("(default: `default`). Accounts are authorized with `calslot auth` or the Google auth tools.\n\n")

	for _, category := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range byCategory[category] {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// groupToolsByCategory buckets tools by name prefix, each bucket sorted by name.
func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}
	for _, group := range categories {
		slices.SortFunc(group, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })
	}
	return categories
}

func getCategoryFromToolName(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	if category, ok := toolCategories[prefix]; ok {
		return category
	}
	return otherCategory
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, ok := props[name].(map[string]interface{})
		if !ok {
			continue
		}
		requirement := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requirement = "required"
		}

		fmt.Fprintf(&sb, "- `%s` (%s): ", name, requirement)
		if desc, ok := prop["description"].(string); ok && desc != "" {
			sb.WriteString(desc)
		} else {
			fmt.Fprintf(&sb, "%s parameter", propertyType(prop))
		}
		if values := enumValues(prop); len(values) > 0 {
			fmt.Fprintf(&sb, " One of: `%s`.", strings.Join(values, "`, `"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func propertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func enumValues(prop map[string]interface{}) []string {
	switch values := prop["enum"].(type) {
	case []string:
		return values
	case []interface{}:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}

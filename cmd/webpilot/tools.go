package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/tools/browser"
)

// toolEntry is one tool in the printed catalog.
type toolEntry struct {
	Name         string                 `yaml:"name"`
	Description  string                 `yaml:"description"`
	LoopBreaking bool                   `yaml:"loop_breaking,omitempty"`
	Required     []string               `yaml:"required,omitempty"`
	Parameters   map[string]interface{} `yaml:"parameters"`
}

// catalog describes the toolset without any live collaborators.
func catalog() []toolEntry {
	ts := browser.NewToolset(browser.Deps{})
	entries := make([]toolEntry, 0, len(ts))
	for _, t := range ts {
		schema := t.Schema()
		entry := toolEntry{
			Name:         t.Name(),
			Description:  t.Description(),
			LoopBreaking: t.IsLoopBreaking(),
			Parameters:   map[string]interface{}{},
		}
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			entry.Parameters = props
		}
		if req, ok := schema["required"].([]string); ok {
			entry.Required = req
		}
		entries = append(entries, entry)
	}
	return entries
}

func knownTool(name string) bool {
	for _, t := range browser.NewToolset(browser.Deps{}) {
		if t.Name() == name {
			return true
		}
	}
	return false
}

func toolNames() []string {
	var names []string
	for _, t := range browser.NewToolset(browser.Deps{}) {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}

func newToolsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(catalog()); err != nil {
				return fmt.Errorf("failed to encode catalog: %w", err)
			}
			return enc.Close()
		},
	}
}

func newCallCmd(c *cli) *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Run one tool directly and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !knownTool(name) {
				return fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(toolNames(), ", "))
			}
			if !json.Valid([]byte(rawArgs)) {
				return fmt.Errorf("--args must be a JSON object")
			}
			if err := c.cfg.RequireSecrets(); err != nil {
				return fmt.Errorf("missing credentials: %w", err)
			}

			a, err := newApp(c.cfg)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
				defer cancel()
				_ = a.close(ctx)
			}()

			return printResult(cmd, a.dispatcher.Execute(cmd.Context(), name, json.RawMessage(rawArgs)))
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "{}", "tool arguments as a JSON object")
	return cmd
}

func printResult(cmd *cobra.Command, result *tools.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if !result.DataCollected && result.Err != nil {
		return fmt.Errorf("%s failed", result.ToolName)
	}
	return nil
}

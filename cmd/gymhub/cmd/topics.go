package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nfrund/gymhub/internal/topicmgr"

	// Topic definitions register themselves when their packages load.
	_ "github.com/nfrund/gymhub/internal/realtime"
	_ "github.com/nfrund/gymhub/internal/websocket"
)

var (
	listOutputFormat string
	listModuleFilter string
	listScopeFilter  string
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Explore the bus topics of the service",
	Long: `Topics carry events between instances and modules over the pub/sub bus.

Examples:
  gymhub topics list
  gymhub topics list --module chat --format json
  gymhub topics list --scope framework
  gymhub topics get gym.affiliation.changed`,
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered topics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := parseScope(listScopeFilter)
		if err != nil {
			return err
		}
		topics := topicmgr.Default().Filter(listModuleFilter, scope)
		if len(topics) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No topics found")
			return nil
		}
		return writeTopics(cmd.OutOrStdout(), topics, listOutputFormat)
	},
}

var topicsGetCmd = &cobra.Command{
	Use:   "get <topic-name>",
	Short: "Show one topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := topicmgr.Default().Get(args[0])
		if err != nil {
			return err
		}
		return writeTopics(cmd.OutOrStdout(), []topicmgr.Topic{t}, listOutputFormat)
	},
}

type topicView struct {
	Name        string `json:"name"`
	Scope       string `json:"scope"`
	Module      string `json:"module,omitempty"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

func writeTopics(w io.Writer, topics []topicmgr.Topic, format string) error {
	switch format {
	case "json":
		views := make([]topicView, 0, len(topics))
		for _, t := range topics {
			views = append(views, topicView{
				Name:        t.Name(),
				Scope:       string(t.Scope()),
				Module:      t.Module(),
				Description: t.Description(),
				Example:     t.Example(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Topics []topicView `json:"topics"`
			Count  int         `json:"count"`
		}{views, len(views)})
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSCOPE\tMODULE\tDESCRIPTION")
		for _, t := range topics {
			module := t.Module()
			if module == "" {
				module = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name(), t.Scope(), module, t.Description())
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q, use table or json", format)
	}
}

// parseScope converts a --scope value to a topicmgr.Scope. Empty means any.
func parseScope(s string) (topicmgr.Scope, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "framework":
		return topicmgr.ScopeFramework, nil
	case "module":
		return topicmgr.ScopeModule, nil
	default:
		return "", fmt.Errorf("invalid scope %q, valid scopes: framework, module", s)
	}
}

func init() {
	topicsListCmd.Flags().StringVarP(&listModuleFilter, "module", "m", "", "Filter topics by module name")
	topicsListCmd.Flags().StringVarP(&listScopeFilter, "scope", "s", "", "Filter topics by scope (framework, module)")
	topicsCmd.PersistentFlags().StringVarP(&listOutputFormat, "format", "f", "table", "Output format (table, json)")

	topicsCmd.AddCommand(topicsListCmd, topicsGetCmd)
	rootCmd.AddCommand(topicsCmd)
}

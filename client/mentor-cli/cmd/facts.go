package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

type factEntry struct {
	Value       interface{} `json:"value"`
	Confidence  float64     `json:"confidence"`
	LastUpdated time.Time   `json:"last_updated"`
}

type studentFacts struct {
	Academic map[string]factEntry `json:"academic"`
	Career   map[string]factEntry `json:"career"`
	Personal map[string]factEntry `json:"personal"`
}

func newFactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facts",
		Short: "Show what the mentor knows about you",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(sessionPath)
			if err != nil {
				return err
			}
			return printFacts(cmd.Context(), cmd.OutOrStdout(), s.StudentID)
		},
	}
}

func printFacts(ctx context.Context, out io.Writer, studentID string) error {
	var facts studentFacts
	if err := newClient().GetJSON(ctx, "/api/v1/students/"+studentID+"/facts", &facts); err != nil {
		return err
	}
	writeFacts(out, facts)
	return nil
}

func writeFacts(out io.Writer, facts studentFacts) {
	buckets := []struct {
		title string
		facts map[string]factEntry
	}{
		{"Academic", facts.Academic},
		{"Career", facts.Career},
		{"Personal", facts.Personal},
	}
	for _, b := range buckets {
		fmt.Fprintf(out, "%s:\n", b.title)
		if len(b.facts) == 0 {
			fmt.Fprintln(out, "  (nothing yet)")
			continue
		}
		keys := make([]string, 0, len(b.facts))
		for k := range b.facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e := b.facts[k]
			v, _ := json.Marshal(e.Value)
			fmt.Fprintf(out, "  %s: %s (confidence %.2f)\n", k, v, e.Confidence)
		}
	}
}

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/learntrack/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect progress audit events",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		since, _ := cmd.Flags().GetDuration("since")

		opts := store.QueryOpts{Limit: limit, Kind: kind}
		if v, _ := cmd.Flags().GetString("enrollment"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return fmt.Errorf("invalid --enrollment %q: %w", v, err)
			}
			opts.EnrollmentID = id
		}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.AuditRepo().Query(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No audit events found.")
			return nil
		}

		fmt.Printf("%-6s  %-19s  %-18s  %-36s  %s\n",
			"Seq", "Timestamp", "Kind", "Enrollment", "Unit")
		fmt.Println(strings.Repeat("─", 120))
		for _, r := range records {
			fmt.Printf("%-6d  %-19s  %-18s  %-36s  %s\n",
				r.Sequence,
				r.OccurredAt.Local().Format("2006-01-02 15:04:05"),
				r.Kind,
				r.EnrollmentID,
				r.UnitID,
			)
		}
		return nil
	},
}

var auditViewCmd = &cobra.Command{
	Use:   "view <sequence>",
	Short: "View the full payload of an audit event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence %q: %w", args[0], err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.AuditRepo().Query(cmd.Context(), store.QueryOpts{
			After:  seq - 1,
			Before: seq + 1,
			Limit:  1,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(records) == 0 {
			return fmt.Errorf("event %d not found", seq)
		}
		r := records[0]

		fmt.Printf("Seq:        %d\n", r.Sequence)
		fmt.Printf("ID:         %s\n", r.ID)
		fmt.Printf("Time:       %s\n", r.OccurredAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Kind:       %s\n", r.Kind)
		fmt.Printf("Enrollment: %s\n", r.EnrollmentID)
		fmt.Printf("Unit:       %s\n", r.UnitID)

		sep := strings.Repeat("─", 60)
		fmt.Println()
		fmt.Println(sep)
		fmt.Println("PAYLOAD")
		fmt.Println(sep)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, r.Payload, "", "  "); err != nil {
			fmt.Println(string(r.Payload))
		} else {
			fmt.Println(pretty.String())
		}
		return nil
	},
}

// openStore opens the configured store without loading the catalog.
func openStore() (*store.Store, error) {
	dsn, err := resolveDSN()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func init() {
	auditListCmd.Flags().Int("limit", 50, "Maximum number of events")
	auditListCmd.Flags().String("kind", "", "Only events of this kind (e.g. topic_completed)")
	auditListCmd.Flags().String("enrollment", "", "Only events of this enrollment")
	auditListCmd.Flags().Duration("since", 0, "Only events newer than this (e.g. 24h)")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditViewCmd)
}

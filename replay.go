package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gearshare/services/triggers"

	"github.com/spf13/cobra"
)

func newReplayCommand() *cobra.Command {
	var (
		opts    appOptions
		eventID string
	)
	cmd := &cobra.Command{
		Use:   "replay <trigger> <event.json>",
		Short: "Run one trigger once for a captured event",
		Long:  "Decode a captured event (raw or a Pub/Sub push body) and run the named trigger against it, printing the outcome as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			delivery, err := triggers.DecodeDelivery(body)
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			if eventID != "" {
				delivery.ID = eventID
			}

			a, err := buildApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.registry.Invoke(cmd.Context(), args[0], delivery)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Trigger string   `json:"trigger"`
				Status  string   `json:"status"`
				Reason  string   `json:"reason,omitempty"`
				Errors  []string `json:"errors,omitempty"`
			}{out.Trigger, string(out.Status), out.Reason, out.ErrorMessages()})
		},
	}

	cmd.Flags().StringVar(&opts.DBFile, "db", "", "realtime database JSON export to use instead of Firebase")
	cmd.Flags().StringVar(&opts.BucketDir, "buckets", "", "directory holding one folder per bucket, used instead of Cloud Storage")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log notifications instead of sending them")
	cmd.Flags().StringVar(&opts.SearchBackend, "search", "", "search backend override: algolia, mongo or memory")
	cmd.Flags().StringVar(&eventID, "event-id", "", "delivery id to use for de-duplication")
	cmd.Flags().BoolVar(&opts.NoDedup, "no-dedup", true, "skip the delivery ledger")
	return cmd
}

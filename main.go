package main

import (
	"os"

	"gearshare/config"
	"gearshare/utils"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gearshare",
		Short: "Storage and database triggers for the gearshare app",
		Long:  "Runs the thumbnail, reservation notification and search index triggers behind HTTP push endpoints or Pub/Sub pull subscriptions.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadConfig()
			utils.GetLogger()
		},
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newSubscribeCommand())
	root.AddCommand(newReplayCommand())
	return root
}

package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply the configured initial commands and hold them until interrupted",
	Long: `run initializes every backend once, binds the actuators, sends each
actuator its configured initial speed or angle and then waits. The stop
button, when configured, stops every actuator. On SIGINT or SIGTERM all
actuators are stopped and the backends released.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel, _, r, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer cancel()
		defer closeRig(r)

		r.ApplyInitial()
		r.Run(ctx)

		log.Println("motorhal run finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

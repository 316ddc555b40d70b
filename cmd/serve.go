package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the actuators over an HTTP control API",
	Long: `serve does everything run does and also listens for HTTP commands:

  GET  /api/actuators             status of every actuator
  GET  /api/actuators/{name}      status of one actuator
  POST /api/actuators/{name}      {"speed": 50} | {"angle": 90} | {"invert": true}
  POST /api/actuators/{name}/stop stop one actuator
  POST /api/stop                  stop every actuator`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel, cfg, r, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer cancel()
		defer closeRig(r)

		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		r.ApplyInitial()
		go r.Run(ctx)
		if err := r.Serve(ctx, addr); err != nil {
			return err
		}

		log.Println("motorhal serve finished")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "0.0.0.0:8080", "listen address, overrides server.addr in the config")
	rootCmd.AddCommand(serveCmd)
}

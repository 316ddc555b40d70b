/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/motorhal/pkg/config"
	"github.com/Seann-Moser/motorhal/pkg/rig"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "motorhal",
	Short: "Drive DC motors and servos from PWM chips, GPIO lines and onboard PWM",
	Long: `motorhal builds the PWM backends and actuators described in a YAML
config file and drives them until interrupted.

Backends can be a PCA9685 16-channel chip on I2C, software PWM on GPIO
character-device lines, or the board's hardware PWM pins.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "motorhal.yaml", "path to the YAML config file")
}

// setup loads the config and builds the rig. The returned context is
// cancelled on SIGINT or SIGTERM.
func setup(parent context.Context) (context.Context, context.CancelFunc, config.Config, *rig.Rig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, config.Config{}, nil, err
	}
	r, err := rig.New(cfg)
	if err != nil {
		return nil, nil, config.Config{}, nil, err
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	return ctx, cancel, cfg, r, nil
}

func closeRig(r *rig.Rig) {
	if err := r.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}

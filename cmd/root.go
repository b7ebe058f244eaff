// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"flag"

	"github.com/spf13/cobra"
)

var (
	// Host-link serial flags
	portName string
	baudRate int

	// Host-link WebSocket flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Actuator-link flags
	robotPort string
	robotBaud int
)

var rootCmd = &cobra.Command{
	Use:   "brainstem",
	Short: "Robot brainstem controller and diagnostics",
	Long: `Brainstem - a safety controller between an operator host link and an
iRobot Create-class actuator controller.

The run command is the controller daemon; the remaining commands are
operator-side diagnostics for either link.

Connection modes for the host link:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

The actuator link is always serial: --robot-port /dev/ttyUSB1 [--robot-baud 57600].

For WebSocket authentication, the password is read from the BRAINSTEM_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Host-link serial device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Host-link baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Host-link WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&robotPort, "robot-port", "", "Actuator-link serial device")
	rootCmd.PersistentFlags().IntVar(&robotBaud, "robot-baud", 57600, "Actuator-link baud rate")

	// glog registers its flags on the standard flag set.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// Execute runs the root command
func Execute() error {
	// glog checks flag.Parsed; cobra parses the pflag mirror instead.
	flag.CommandLine.Parse([]string{})
	return rootCmd.Execute()
}

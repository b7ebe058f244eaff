// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/dancxjo/brainstem-pm/pkg/oi"
)

var detectTimeout int

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan serial ports for a responding robot",
	Long: `Probe every serial port on the system for a Create-class robot.

Each port is opened at the actuator baud rate, the Open Interface is
started and a single battery voltage query is issued. A port that
answers within the timeout is reported as a robot.

Exit codes:
  0 - At least one robot found
  1 - No robot responded on any port
  2 - Port enumeration failed`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().IntVar(&detectTimeout, "timeout", 1, "Per-port probe timeout in seconds")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Port enumeration failed: %v\n", err)
		os.Exit(2)
	}
	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		os.Exit(1)
	}

	fmt.Printf("Brainstem - Robot Detection\n")
	fmt.Printf("Probing %d port(s) at %d baud, %d second(s) each\n\n", len(ports), robotBaud, detectTimeout)

	found := 0
	for _, name := range ports {
		fmt.Printf("  %s ... ", name)

		mv, err := probePort(name)
		if err != nil {
			fmt.Printf("%v\n", err)
			continue
		}
		fmt.Printf("ROBOT (battery %d mV)\n", mv)
		found++
	}

	fmt.Printf("\n--- Detection summary ---\n")
	fmt.Printf("Robots found: %d\n", found)

	if found == 0 {
		fmt.Printf("No robots responded. Check power and cabling.\n")
		os.Exit(1)
	}
	return nil
}

// probePort opens one port and asks for battery voltage. Returns millivolts
// on success.
func probePort(name string) (uint16, error) {
	conn, err := OpenSerialConnection(name, robotBaud)
	if err != nil {
		return 0, fmt.Errorf("open failed: %v", err)
	}
	defer conn.Close()

	conn.Write(oi.EncodeStart())
	time.Sleep(50 * time.Millisecond)

	// Quiet a stream a previous run may have left on.
	conn.Write(oi.EncodePauseStream())
	time.Sleep(50 * time.Millisecond)

	data, err := oi.QuerySensor(conn, oi.PacketVoltage, time.Duration(detectTimeout)*time.Second)
	if err != nil {
		return 0, fmt.Errorf("no response")
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("short reply")
	}
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

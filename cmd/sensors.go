// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dancxjo/brainstem-pm/pkg/oi"
)

var sensorsTimeout int

var sensorsCmd = &cobra.Command{
	Use:   "sensors [packet-id...]",
	Short: "Query individual sensor packets from the robot",
	Long: `Query sensor packets one at a time over the actuator link.

With no arguments, a default set covering bumpers, cliffs, buttons and
battery is queried. Packet ids are the Open Interface sensor ids, for
example 7 (bumps/wheel drops) or 22 (battery voltage).

Exit codes:
  0 - All queries answered
  1 - At least one query timed out
  2 - Connection error

Useful for verifying the robot link without starting the full daemon.`,
	RunE: runSensors,
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
	sensorsCmd.Flags().IntVar(&sensorsTimeout, "timeout", 1, "Per-query timeout in seconds")
}

// sensorPacketNames labels the packets this tool knows how to describe.
var sensorPacketNames = map[byte]string{
	oi.PacketBumpsWheeldrops: "bumps/wheel drops",
	oi.PacketWall:            "wall",
	oi.PacketCliffLeft:       "cliff left",
	oi.PacketCliffFrontLeft:  "cliff front left",
	oi.PacketCliffFrontRight: "cliff front right",
	oi.PacketCliffRight:      "cliff right",
	oi.PacketVirtualWall:     "virtual wall",
	oi.PacketOvercurrents:    "overcurrents",
	oi.PacketButtons:         "buttons",
	oi.PacketDistance:        "distance",
	oi.PacketAngle:           "angle",
	oi.PacketChargingState:   "charging state",
	oi.PacketVoltage:         "battery voltage",
	oi.PacketCurrent:         "battery current",
	oi.PacketBatteryTemp:     "battery temperature",
	oi.PacketBatteryCharge:   "battery charge",
	oi.PacketBatteryCapacity: "battery capacity",
}

func runSensors(cmd *cobra.Command, args []string) error {
	ids := []byte{
		oi.PacketBumpsWheeldrops,
		oi.PacketCliffLeft,
		oi.PacketCliffFrontLeft,
		oi.PacketCliffFrontRight,
		oi.PacketCliffRight,
		oi.PacketButtons,
		oi.PacketVoltage,
		oi.PacketBatteryCharge,
		oi.PacketBatteryCapacity,
	}
	if len(args) > 0 {
		ids = ids[:0]
		for _, a := range args {
			v, err := strconv.ParseUint(a, 10, 8)
			if err != nil || oi.PacketSize(byte(v)) == 0 {
				return fmt.Errorf("unknown sensor packet id %q", a)
			}
			ids = append(ids, byte(v))
		}
	}

	conn, connDesc, err := OpenRobotConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Brainstem - Sensor Query\n")
	fmt.Printf("Link: %s\n", connDesc)
	fmt.Printf("Timeout: %d second(s) per query\n\n", sensorsTimeout)

	conn.Write(oi.EncodeStart())
	time.Sleep(50 * time.Millisecond)

	// A still-running stream would interleave with query replies.
	conn.Write(oi.EncodePauseStream())
	time.Sleep(50 * time.Millisecond)

	timeout := time.Duration(sensorsTimeout) * time.Second
	failures := 0
	for _, id := range ids {
		name := sensorPacketNames[id]
		if name == "" {
			name = "?"
		}

		data, err := oi.QuerySensor(conn, id, timeout)
		if err != nil {
			fmt.Printf("  packet %2d (%s): TIMEOUT: %v\n", id, name, err)
			failures++
			continue
		}
		fmt.Printf("  packet %2d (%-20s): % X  %s\n", id, name, data, describeSensorValue(id, data))
	}

	if failures > 0 {
		fmt.Printf("\n%d of %d queries failed\n", failures, len(ids))
		os.Exit(1)
	}
	fmt.Printf("\nAll %d queries answered\n", len(ids))
	return nil
}

// describeSensorValue renders a packet's raw bytes in engineering units.
func describeSensorValue(id byte, data []byte) string {
	switch oi.PacketSize(id) {
	case 1:
		if len(data) < 1 {
			return ""
		}
		switch id {
		case oi.PacketBumpsWheeldrops, oi.PacketButtons, oi.PacketOvercurrents:
			return fmt.Sprintf("= 0b%08b", data[0])
		default:
			return fmt.Sprintf("= %d", data[0])
		}
	case 2:
		if len(data) < 2 {
			return ""
		}
		raw := uint16(data[0])<<8 | uint16(data[1])
		switch id {
		case oi.PacketVoltage:
			return fmt.Sprintf("= %d mV", raw)
		case oi.PacketBatteryCharge, oi.PacketBatteryCapacity:
			return fmt.Sprintf("= %d mAh", raw)
		case oi.PacketDistance:
			return fmt.Sprintf("= %d mm", int16(raw))
		case oi.PacketAngle:
			return fmt.Sprintf("= %d deg", int16(raw))
		case oi.PacketCurrent:
			return fmt.Sprintf("= %d mA", int16(raw))
		default:
			return fmt.Sprintf("= %d", raw)
		}
	}
	return ""
}

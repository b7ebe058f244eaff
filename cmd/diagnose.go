// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/dancxjo/brainstem-pm/pkg/oi"
)

var (
	diagShowAll       bool
	diagStatsInterval int
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Monitor the actuator sensor stream and analyze errors",
	Long: `Track sensor stream health on the actuator link with statistics.

This command decodes each stream frame and detects:
  - Checksum failures and framing errors
  - Unrecognized payload layouts
  - Which checksum convention the firmware actually speaks (counted
    separately for sum-to-zero and ones-complement)
  - Statistics and trends (frame rate, error rate)

By default only errors are displayed. Use --show-all to display valid
frames too. The stream subscription is issued on startup, so the robot
need not already be streaming.`,
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().BoolVar(&diagShowAll, "show-all", false, "Show all frames (not just errors)")
	diagnoseCmd.Flags().IntVar(&diagStatsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	conn, connDesc, err := OpenRobotConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Brainstem - Stream Diagnostics\n")
	fmt.Printf("Link: %s\n", connDesc)
	fmt.Printf("Statistics interval: %d seconds\n", diagStatsInterval)
	if diagShowAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	conn.Write(oi.EncodeStart())
	time.Sleep(50 * time.Millisecond)
	conn.Write(oi.EncodeStream(oi.DefaultStreamPackets))

	decoder := oi.NewStreamDecoder(oi.Either{})
	stats := oi.NewStatistics()
	var sensors oi.SensorState

	// Parallel decoders tally which convention the firmware speaks. A frame
	// valid under both conventions counts for both.
	sumDecoder := oi.NewStreamDecoder(oi.SumToZero{})
	onesDecoder := oi.NewStreamDecoder(oi.OnesComplement{})
	var sumFrames, onesFrames uint64

	// Sync tracking - ignore decode errors until the first valid frame
	synchronized := false
	invalidBytesBeforeSync := 0

	statsTicker := time.NewTicker(time.Duration(diagStatsInterval) * time.Second)
	defer statsTicker.Stop()

	buf := make([]byte, 128)

	// Channel for non-blocking serial reads
	serialBuf := make(chan []byte, 10)
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				glog.Errorf("read error: %v", err)
				if err == ErrConnectionClosed {
					close(serialBuf)
					return
				}
				continue
			}
			if n == 0 {
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			serialBuf <- data
		}
	}()

	for {
		select {
		case data, ok := <-serialBuf:
			if !ok {
				return nil
			}
			for _, b := range data {
				if f, err := sumDecoder.Feed(b); err == nil && f != nil {
					sumFrames++
				}
				if f, err := onesDecoder.Feed(b); err == nil && f != nil {
					onesFrames++
				}

				frame, decodeErr := decoder.Feed(b)

				if decodeErr != nil {
					if synchronized {
						stats.RecordError(decodeErr)
						printStreamError(decodeErr)
					} else {
						invalidBytesBeforeSync++
					}
					continue
				}
				if frame == nil {
					continue
				}

				if !synchronized {
					synchronized = true
					if invalidBytesBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", invalidBytesBeforeSync)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				now := time.Now()
				stats.RecordFrame(now)

				sensors.BeginFrame(now)
				if err := oi.ApplyFrame(&sensors, frame, oi.DefaultStreamPackets); err != nil {
					stats.RecordLayoutError()
					printLayoutError(frame)
				} else if diagShowAll {
					printFrame(frame, &sensors)
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Printf("Checksum conventions: sum-to-zero=%d ones-complement=%d\n", sumFrames, onesFrames)
			fmt.Println()
		}
	}
}

func printStreamError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mSTREAM ERROR:\033[0m %v\n", timestamp, err)
}

func printLayoutError(frame *oi.Frame) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mLAYOUT ERROR:\033[0m unrecognized %d-byte payload % X\n",
		timestamp, len(frame.Payload), frame.Payload)
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

func printFrame(frame *oi.Frame, s *oi.SensorState) {
	timestamp := frame.Timestamp.Format("15:04:05.000")
	fmt.Printf("[%s] frame %d bytes  bump=%02b cliff=%04b drop=%02b  %d mV (%d%%)  x=%.3f y=%.3f th=%.2f\n",
		timestamp, len(frame.Payload),
		s.BumpMask, s.CliffMask, s.WheelDropMask,
		s.BatteryMilliVolts, s.BatteryPercent(),
		s.X, s.Y, s.Theta)
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dancxjo/brainstem-pm/pkg/oi"
)

var (
	recordOutput  string
	recordBad     bool
	recordDump    string
	recordChecksm string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture the sensor stream to a frame log, or dump one",
	Long: `Capture validated sensor stream frames to a CBOR frame log.

Each record carries the arrival timestamp and the raw payload, so a log
can be replayed through the decoder offline when chasing a field issue.
With --bad, rejected byte runs are logged too.

With --dump FILE no connection is opened; the log is printed in
human-readable form instead.

Examples:
  # Capture to stream.fl until Ctrl+C
  brainstem record --robot-port /dev/ttyUSB1 -o stream.fl

  # Inspect a captured log
  brainstem record --dump stream.fl`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "stream.fl", "Frame log file to write")
	recordCmd.Flags().BoolVar(&recordBad, "bad", false, "Also record rejected byte runs")
	recordCmd.Flags().StringVar(&recordDump, "dump", "", "Dump an existing frame log instead of capturing")
	recordCmd.Flags().StringVar(&recordChecksm, "checksum", "either", "Stream checksum convention")
}

func runRecord(cmd *cobra.Command, args []string) error {
	if recordDump != "" {
		return dumpFrameLog(recordDump)
	}
	return captureFrameLog()
}

func dumpFrameLog(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := oi.NewRecordReader(f)
	var sensors oi.SensorState
	count, bad := 0, 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A truncated tail is normal for a log cut mid-record.
			fmt.Printf("[WARN] log ends early: %v\n", err)
			break
		}
		count++
		stamp := rec.At.Format("15:04:05.000")
		if rec.Bad {
			bad++
			fmt.Printf("[%s] REJECTED % X\n", stamp, rec.Payload)
			continue
		}
		sensors.BeginFrame(rec.At)
		if applyErr := oi.ApplyFrame(&sensors, &oi.Frame{Payload: rec.Payload, Timestamp: rec.At}, oi.DefaultStreamPackets); applyErr != nil {
			fmt.Printf("[%s] %d bytes (layout unknown) % X\n", stamp, len(rec.Payload), rec.Payload)
			continue
		}
		fmt.Printf("[%s] bump=%02b cliff=%04b drop=%02b  %d mV (%d%%)  x=%.3f y=%.3f th=%.2f\n",
			stamp, sensors.BumpMask, sensors.CliffMask, sensors.WheelDropMask,
			sensors.BatteryMilliVolts, sensors.BatteryPercent(),
			sensors.X, sensors.Y, sensors.Theta)
	}

	fmt.Printf("\n%d records (%d rejected)\n", count, bad)
	return nil
}

func captureFrameLog() error {
	validator, err := oi.ValidatorByName(recordChecksm)
	if err != nil {
		return err
	}

	conn, connDesc, err := OpenRobotConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	out, err := os.Create(recordOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Printf("Brainstem - Stream Capture\n")
	fmt.Printf("Link: %s\n", connDesc)
	fmt.Printf("Writing: %s\n", recordOutput)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	conn.Write(oi.EncodeStart())
	time.Sleep(50 * time.Millisecond)
	conn.Write(oi.EncodeStream(oi.DefaultStreamPackets))

	decoder := oi.NewStreamDecoder(validator)
	writer := oi.NewRecordWriter(out)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	frames := 0
	rejected := 0
	buf := make([]byte, 128)
	var badRun []byte

	for {
		select {
		case <-sigChan:
			conn.Write(oi.EncodePauseStream())
			fmt.Printf("\n%d frames captured (%d rejected runs)\n", frames, rejected)
			return nil
		default:
		}

		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				fmt.Printf("\nConnection closed; %d frames captured\n", frames)
				return nil
			}
			continue
		}

		for _, b := range buf[:n] {
			frame, decodeErr := decoder.Feed(b)
			if decodeErr != nil {
				if recordBad {
					badRun = append(badRun, b)
				}
				continue
			}
			if frame == nil {
				continue
			}

			if len(badRun) > 0 {
				rejected++
				if werr := writer.Write(oi.FrameRecord{At: time.Now(), Payload: badRun, Bad: true}); werr != nil {
					return werr
				}
				badRun = nil
			}

			frames++
			if werr := writer.Write(oi.FrameRecord{At: frame.Timestamp, Payload: frame.Payload}); werr != nil {
				return werr
			}
		}
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the host link by sending PING and timing PONG",
	Long: `Send checksummed PING lines over the host link and wait for PONG.

The daemon answers PING in any mode, so this works without promoting to
HOST_CONTROLLED and without disturbing a running behavior.

This is useful for verifying:
  - The host link is established
  - HTTP Basic authentication works (WebSocket links)
  - The daemon's command interpreter is alive
  - Round-trip latency

Exit codes:
  0 - All pings answered
  1 - One or more pings timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenHostConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Brainstem - Host Link Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		line := hostlink.AppendChecksum(fmt.Sprintf("PING,%d", i))
		want := fmt.Sprintf("PONG,%d", i)

		startTime := time.Now()
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		responseChan := make(chan string, 1)
		errChan := make(chan error, 1)

		go func() {
			buf := make([]byte, 256)
			var partial []byte
			for {
				n, err := conn.Read(buf)
				if err != nil {
					errChan <- err
					return
				}
				if n == 0 {
					time.Sleep(5 * time.Millisecond)
					continue
				}
				for _, b := range buf[:n] {
					if b != '\n' && b != '\r' {
						partial = append(partial, b)
						continue
					}
					reply := string(partial)
					partial = partial[:0]
					// Match the PONG for this sequence; telemetry keeps
					// flowing between replies.
					if strings.HasPrefix(reply, want) {
						responseChan <- reply
						return
					}
				}
			}
		}()

		select {
		case reply := <-responseChan:
			rtt := time.Since(startTime)
			fmt.Printf("%s, rtt=%v\n", reply, rtt.Round(time.Millisecond))
			successCount++

		case err := <-errChan:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount++

		case <-time.After(time.Duration(pingTimeout) * time.Second):
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			failCount++
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

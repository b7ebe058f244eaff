// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/dancxjo/brainstem-pm/pkg/core"
	"github.com/dancxjo/brainstem-pm/pkg/oi"
)

var (
	runRawRelay bool
	runChecksum string
	runBuild    string
	runListen   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the brainstem controller daemon",
	Long: `Run the controller: bridge the host link to the actuator, enforce the
safety arbitration loop and publish telemetry.

The daemon boots in AUTONOMOUS mode. A NUL byte on the host link promotes
to HOST_CONTROLLED; host silence demotes back. With --raw-relay the host
talks straight through to the actuator while AUTONOMOUS.

The host link is a serial device (--port), an outbound WebSocket (--url),
or a single-client WebSocket listener (--listen addr).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runController()
	},
}

func init() {
	runCmd.Flags().BoolVar(&runRawRelay, "raw-relay", false, "Relay host bytes verbatim to the actuator while AUTONOMOUS")
	runCmd.Flags().StringVar(&runChecksum, "checksum", "either", "Stream checksum convention: sum-to-zero, ones-complement or either")
	runCmd.Flags().StringVar(&runBuild, "build", "dev", "Build identifier reported in HELLO")
	runCmd.Flags().StringVar(&runListen, "listen", "", "Listen for one WebSocket host client on this address (e.g. :8474)")
	rootCmd.AddCommand(runCmd)
}

func runController() error {
	validator, err := oi.ValidatorByName(runChecksum)
	if err != nil {
		return err
	}

	robot, robotDesc, err := OpenRobotConnection()
	if err != nil {
		return fmt.Errorf("actuator link: %v", err)
	}
	defer robot.Close()

	var (
		host     Connection
		hostDesc string
	)
	if runListen != "" {
		host, hostDesc, err = listenHostConnection(runListen)
	} else {
		host, hostDesc, err = OpenHostConnection()
	}
	if err != nil {
		return fmt.Errorf("host link: %v", err)
	}
	defer host.Close()

	glog.Infof("actuator link: %s", robotDesc)
	glog.Infof("host link: %s", hostDesc)

	cfg := core.DefaultConfig()
	cfg.Build = runBuild
	cfg.RawRelay = runRawRelay
	cfg.Validator = validator

	ctrl := core.NewController(cfg, host, robot)

	stop := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		glog.Infof("received %v, stopping", sig)
		close(stop)
	}()

	return ctrl.Run(stop)
}

// listenHostConnection accepts exactly one WebSocket host client. Later
// upgrade attempts are refused while the first client holds the link.
func listenHostConnection(addr string) (Connection, string, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	connChan := make(chan *websocket.Conn, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			glog.Warningf("host upgrade failed: %v", err)
			return
		}
		select {
		case connChan <- c:
		default:
			c.Close()
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	glog.Infof("waiting for host client on %s", addr)
	select {
	case c := <-connChan:
		return &WebSocketConnection{conn: c}, fmt.Sprintf("WebSocket listener: %s", addr), nil
	case err := <-errChan:
		return nil, "", fmt.Errorf("host listener: %v", err)
	}
}

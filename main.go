// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors
//
// Brainstem - safety controller and diagnostics for an iRobot Create-class
// robot base.

package main

import (
	"os"

	"github.com/golang/glog"

	"github.com/dancxjo/brainstem-pm/cmd"
)

func main() {
	defer glog.Flush()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

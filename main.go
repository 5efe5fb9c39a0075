// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Siastat - SIA DC-03 Serial Protocol Analyzer
//
// A CLI tool for receiving, decoding and analyzing SIA alarm panel traffic
// in human-readable format.

package main

import (
	"os"

	"github.com/Thermoquad/siastat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/siastat/pkg/sia"
)

var loginTimeout int

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a panel and advertise receiver capabilities",
	Long: `Send a REMOTE LOGIN block with the access code from the configuration file,
followed by a CONFIGURATION block advertising session.capabilities, then wait
for the panel to answer.

The access code is only read from the configuration file to keep it out of
shell history.

Exit codes:
  0 - Panel acknowledged the login
  1 - Panel rejected the login, or timeout
  2 - Connection or configuration error`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().IntVar(&loginTimeout, "timeout", 10, "Timeout in seconds to wait for the panel")
}

// loginReceiver reports the first acknowledge or reject.
type loginReceiver struct {
	lineReceiver
	result chan bool
}

func (r loginReceiver) Acknowledge() {
	r.lineReceiver.Acknowledge()
	select {
	case r.result <- true:
	default:
	}
}

func (r loginReceiver) Reject() {
	r.lineReceiver.Reject()
	select {
	case r.result <- false:
	default:
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	if appConfig.Session.AccessCode == "" {
		fmt.Fprintln(os.Stderr, "Configuration error: session.access_code is not set")
		os.Exit(2)
	}
	login, err := sia.NewRemoteLogin(appConfig.Session.AccessCode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	configuration, err := sia.NewConfiguration(appConfig.Session.Capabilities)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Siastat - Remote Login\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Capabilities: %s\n\n", appConfig.Session.Capabilities)

	receiver := loginReceiver{
		lineReceiver: lineReceiver{emit: func(line string) { fmt.Println(line) }},
		result:       make(chan bool, 1),
	}
	writer := sia.NewBlockWriter(conn)
	session, err := newSession(receiver, writer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- readChunks(conn, func(data []byte) error {
			if err := feedBlocks(session, data, func(b *sia.Block) { fmt.Print(sia.FormatBlock(b)) }, nil); err != nil {
				session.Framer().Reset()
			}
			return nil
		})
	}()

	for _, b := range []*sia.Block{login, configuration} {
		fmt.Print("TX " + sia.FormatBlock(b))
		if err := writer.SendBlock(b); err != nil {
			fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
			os.Exit(2)
		}
	}

	select {
	case ok := <-receiver.result:
		if ok {
			fmt.Printf("SUCCESS: Panel acknowledged login\n")
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "REJECTED: Panel rejected login\n")
		os.Exit(1)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Connection closed: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(loginTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No answer within %d seconds\n", loginTimeout)
		os.Exit(1)
	}

	return nil
}

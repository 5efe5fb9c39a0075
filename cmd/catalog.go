// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [CODE]",
	Short: "List event codes known to the decoder",
	Long: `Print the event catalog used for decoding: either every code, or the full
entry for one code. The catalog comes from --config when it names one, and
from the built-in SIA table otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	catalog, err := appConfig.LoadCatalog()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		code := strings.ToUpper(args[0])
		entry, ok := catalog.Lookup(code)
		if !ok {
			return fmt.Errorf("unknown event code %q", code)
		}
		fmt.Printf("Code:        %s\n", entry.Code)
		fmt.Printf("Name:        %s\n", entry.Name)
		fmt.Printf("Address:     %s\n", entry.Address.Label())
		if entry.Description != "" {
			fmt.Printf("Description: %s\n", entry.Description)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tADDRESS\tNAME")
	for _, code := range catalog.Codes() {
		entry, _ := catalog.Lookup(code)
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Code, entry.Address.Label(), entry.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d codes\n", catalog.Len())
	return nil
}

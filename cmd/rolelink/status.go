// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
	"github.com/rolelink-dev/rolelink/pkg/health"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Long:  "Query the running service's health endpoint.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultAddress, "service address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body struct {
		Status string          `json:"status"`
		Sync   *health.Metrics `json:"sync"`
	}
	if err := newServiceClient(addr, "").getJSON("/health", &body); err != nil {
		if rlerr.HasCode(err, rlerr.CodeCLIServiceNotRunning) {
			_, _ = fmt.Fprintf(out, "rolelink at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "rolelink at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "rolelink at %s: %s\n", addr, body.Status)
	if m := body.Sync; m != nil {
		_, _ = fmt.Fprintf(out, "  writes: %d ok, %d failed\n", m.Written, m.FailureCount)
		if m.LastFailureAt != nil {
			_, _ = fmt.Fprintf(out, "  last failure: %s\n", m.LastFailureAt.Format(time.RFC3339))
		}
	}
	return nil
}

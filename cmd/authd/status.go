// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/config"
)

const probeTimeout = 2 * time.Second

// ProbeStatus is the result of one health probe.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`
	Error  string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the health probes of a running authd",
		Long: `Query the liveness and readiness probes on metrics-addr. Readiness
fails while the database is unreachable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg, &http.Client{Timeout: probeTimeout})
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig, client *http.Client) error {
	svcCfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err //nolint:wrapcheck // already coded CONFIG_LOAD_FAILED
	}
	if svcCfg.MetricsAddr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", config.KeyMetricsAddr).
			Errorf("metrics-addr is empty; the probe server is disabled")
	}

	base := "http://" + svcCfg.MetricsAddr
	statuses := []ProbeStatus{
		queryProbe(cmd.Context(), client, "liveness", base+"/healthz/liveness"),
		queryProbe(cmd.Context(), client, "readiness", base+"/healthz/readiness"),
	}

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(statuses)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(statuses)
	}
	cmd.Println(output)

	for _, s := range statuses {
		if !s.OK {
			return oops.Code("NOT_READY").With("probe", s.Probe).Errorf("%s probe failed", s.Probe)
		}
	}
	return nil
}

// queryProbe performs a GET against a probe endpoint.
func queryProbe(ctx context.Context, client *http.Client, probe, url string) ProbeStatus {
	status := ProbeStatus{Probe: probe}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status.Error = fmt.Sprintf("failed to build request: %v", err)
		return status
	}
	resp, err := client.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		status.Error = fmt.Sprintf("failed to read response: %v", err)
		return status
	}
	status.Status = resp.StatusCode
	status.Body = strings.TrimSpace(string(body))
	status.OK = resp.StatusCode == http.StatusOK
	return status
}

// formatStatusTable formats the probes as a human-readable table.
func formatStatusTable(statuses []ProbeStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROBE\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintln(w, "-----\t------\t------")

	for _, s := range statuses {
		state := "ok"
		if !s.OK {
			state = "failing"
		}
		detail := s.Body
		if s.Error != "" {
			detail = s.Error
		} else if s.Status != 0 {
			detail = fmt.Sprintf("%d %s", s.Status, s.Body)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Probe, state, detail)
	}

	_ = w.Flush()
	return buf.String()
}

// formatStatusJSON formats the probes as JSON.
func formatStatusJSON(statuses []ProbeStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
	}
	return string(data), nil
}

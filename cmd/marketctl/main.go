// Command marketctl is the operator CLI for marketd: it drives the admin
// surface (pause, resolve, reset circuit breaker, reclaim dust, whitelist)
// over HTTP, grounded on nhb-cli's pattern of a small RPC-speaking client
// bound to subcommands, here built on cobra rather than a manual flag
// switch.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var baseURL string

var rootCmd = &cobra.Command{
	Use:   "marketctl",
	Short: "Operator CLI for the prediction-market gateway",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "addr", "http://localhost:8090", "marketd base URL")
	rootCmd.AddCommand(
		pauseCmd(), unpauseCmd(), resolveCmd(), resetCircuitBreakerCmd(),
		reclaimDustCmd(), whitelistAddCmd(), whitelistRemoveCmd(), settlePoolCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func post(path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(baseURL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("marketctl: request %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("marketctl: %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}
	fmt.Println(string(respBody))
	return nil
}

func pauseCmd() *cobra.Command {
	var marketID, reason string
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause a market, or the whole contract if --market is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(fmt.Sprintf("/admin/pause?market_id=%s", marketID), map[string]string{"reason": reason})
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "market id, empty for a global pause")
	cmd.Flags().StringVar(&reason, "reason", "", "pause reason")
	return cmd
}

func unpauseCmd() *cobra.Command {
	var marketID string
	cmd := &cobra.Command{
		Use:   "unpause",
		Short: "Clear a market or global pause flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(fmt.Sprintf("/admin/unpause?market_id=%s", marketID), nil)
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "market id, empty for a global unpause")
	return cmd
}

func resolveCmd() *cobra.Command {
	var marketID string
	var winner int
	var yesBps, noBps uint64
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a market outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(fmt.Sprintf("/markets/%s/resolve", marketID), map[string]any{
				"winner": winner, "yes_ratio_bps": yesBps, "no_ratio_bps": noBps,
			})
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "market id")
	cmd.Flags().IntVar(&winner, "winner", 0, "0=no, 1=yes, 2=draw")
	cmd.Flags().Uint64Var(&yesBps, "yes-bps", 0, "yes payout ratio, basis points")
	cmd.Flags().Uint64Var(&noBps, "no-bps", 0, "no payout ratio, basis points")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

func settlePoolCmd() *cobra.Command {
	var marketID string
	cmd := &cobra.Command{
		Use:   "settle-pool",
		Short: "Settle a resolved market's pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(fmt.Sprintf("/markets/%s/settle", marketID), nil)
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "market id")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

func resetCircuitBreakerCmd() *cobra.Command {
	var marketID string
	cmd := &cobra.Command{
		Use:   "reset-circuit-breaker",
		Short: "Clear a tripped circuit breaker once its cooldown and ratio conditions are met",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(fmt.Sprintf("/markets/%s/circuit-breaker/reset", marketID), nil)
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "market id")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

func reclaimDustCmd() *cobra.Command {
	var marketID string
	cmd := &cobra.Command{
		Use:   "reclaim-dust",
		Short: "Sweep a fully drained, settled market's remaining vault balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(fmt.Sprintf("/markets/%s/reclaim-dust", marketID), nil)
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "market id")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

func whitelistAddCmd() *cobra.Command {
	var creator string
	cmd := &cobra.Command{
		Use:   "whitelist-add",
		Short: "Grant a creator address permission to create markets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/admin/whitelist/add", map[string]string{"creator": creator})
		},
	}
	cmd.Flags().StringVar(&creator, "creator", "", "creator address")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func whitelistRemoveCmd() *cobra.Command {
	var creator string
	cmd := &cobra.Command{
		Use:   "whitelist-remove",
		Short: "Revoke a creator address's market-creation permission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/admin/whitelist/remove", map[string]string{"creator": creator})
		},
	}
	cmd.Flags().StringVar(&creator, "creator", "", "creator address")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

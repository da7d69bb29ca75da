package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/matrixd/internal/client"
	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

// globals holds the flags shared by every command.
type globals struct {
	addr    string
	timeout time.Duration
}

func (g *globals) client() *client.Client {
	return &client.Client{Addr: g.addr, Timeout: g.timeout}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "matrixctl",
		Short:        "Client for the matrixd matrix multiplication server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.addr, "addr", "a", "localhost:8080", "server address")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", client.DefaultTimeout, "limit for one exchange, 0 for none")

	root.AddCommand(
		newCalcCmd(g),
		newBenchCmd(g),
		newSwarmCmd(g),
		newStatsCmd(),
		newStrategiesCmd(),
	)
	return root
}

// strategyFlag parses a strategy name or alias.
func strategyFlag(name string) (partition.Strategy, error) {
	s, err := partition.ParseStrategy(name)
	if err != nil {
		return 0, fmt.Errorf("--strategy %q: %w", name, err)
	}
	return s, nil
}

func newCalcCmd(g *globals) *cobra.Command {
	var (
		strategy    string
		size        int
		printMatrix bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Send one request and report the result code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := strategyFlag(strategy)
			if err != nil {
				return err
			}
			start := time.Now()
			resp := g.client().Calculate(cmd.Context(), s, size, printMatrix)
			took := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "code: %v\n", resp.Code)
			fmt.Fprintf(out, "time: %v\n", took)
			if printMatrix && resp.Code.OK() {
				fmt.Fprintln(out, resp.Matrix)
			}
			if !resp.Code.OK() {
				return fmt.Errorf("request failed: %w", resp.Code.Err())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "cyclic-row", "partitioning strategy")
	cmd.Flags().IntVarP(&size, "size", "n", 3, "matrix size")
	cmd.Flags().BoolVarP(&printMatrix, "print", "p", false, "request and print the product")
	return cmd
}

func newBenchCmd(g *globals) *cobra.Command {
	var (
		strategy string
		size     int
		requests int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time sequential requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := strategyFlag(strategy)
			if err != nil {
				return err
			}
			if requests < 1 {
				return fmt.Errorf("--requests must be at least 1")
			}
			r := g.client().Sequential(cmd.Context(), s, size, requests)
			return report(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "cyclic-row", "partitioning strategy")
	cmd.Flags().IntVarP(&size, "size", "n", 100, "matrix size")
	cmd.Flags().IntVarP(&requests, "requests", "r", 10, "number of sequential requests")
	return cmd
}

func newSwarmCmd(g *globals) *cobra.Command {
	var (
		strategy string
		size     int
		clients  int
	)
	cmd := &cobra.Command{
		Use:   "swarm",
		Short: "Run concurrent virtual clients, one request each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := strategyFlag(strategy)
			if err != nil {
				return err
			}
			if clients < 1 {
				return fmt.Errorf("--clients must be at least 1")
			}
			r := g.client().Concurrent(cmd.Context(), s, size, clients)
			return report(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "cyclic-row", "partitioning strategy")
	cmd.Flags().IntVarP(&size, "size", "n", 100, "matrix size")
	cmd.Flags().IntVarP(&clients, "clients", "c", 10, "number of concurrent clients")
	return cmd
}

func report(out io.Writer, r client.BenchResult) error {
	fmt.Fprintln(out, r)
	if r.Failures > 0 {
		for code, n := range r.Codes {
			if !code.OK() {
				fmt.Fprintf(out, "  code %v: %d\n", code, n)
			}
		}
		return fmt.Errorf("%d of %d requests failed", r.Failures, r.Requests)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show server counters from the admin endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := client.Stats(cmd.Context(), admin)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "http://localhost:9090", "admin endpoint base URL")
	return cmd
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List partitioning strategies and their wire codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "protocol version %d\n", protocol.Version)
			for _, s := range partition.Strategies {
				code, err := protocol.StrategyCode(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %d  %s\n", code, s)
			}
			return nil
		},
	}
}

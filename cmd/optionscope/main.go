// optionscope — synthetic options-chain analytics dashboard.
//
// Main CLI entrypoint using the cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelwaves/optionscope/api"
	"github.com/michaelwaves/optionscope/internal/chain"
	"github.com/michaelwaves/optionscope/internal/config"
	"github.com/michaelwaves/optionscope/internal/logging"
	"github.com/michaelwaves/optionscope/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "optionscope",
	Short: "optionscope — synthetic options-chain analytics",
	Long: `optionscope synthesizes a full options chain for any ticker symbol,
annotates every contract with pricing, volatility, and Greek risk
metrics, and flags mispriced contracts by comparing model-predicted
volatility against the market-implied level.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("optionscope %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Chain Command ---

var chainCmd = &cobra.Command{
	Use:   "chain [symbol]",
	Short: "Print the synthesized option chain for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := newRepository()

		res, err := repo.GetChain(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.Warning != "" {
			fmt.Fprintf(os.Stderr, "warning: %s\n", res.Warning)
		}

		side := models.Call
		if puts, _ := cmd.Flags().GetBool("puts"); puts {
			side = models.Put
		}

		c := res.Chain
		fmt.Printf("%s  ref %.2f  strikes %.2f–%.2f  generated %s (%s)\n\n",
			c.Symbol, c.ReferencePrice, c.StrikeRange.Min, c.StrikeRange.Max,
			c.GeneratedAt.Format("2006-01-02 15:04:05"), res.Source)

		printContracts(c.SideContracts(side))
		return nil
	},
}

func init() {
	chainCmd.Flags().Bool("puts", false, "show puts instead of calls")
}

// --- Explain Command ---

var explainCmd = &cobra.Command{
	Use:   "explain [symbol] [contractSymbol]",
	Short: "Explain one contract of a symbol's chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := newRepository()

		res, err := repo.GetChain(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		want := strings.ToUpper(args[1])
		for _, c := range append(res.Chain.Calls, res.Chain.Puts...) {
			if c.ContractSymbol == want {
				for _, line := range chain.ExplainContract(c) {
					fmt.Println("  " + line)
				}
				return nil
			}
		}
		return fmt.Errorf("contract %s not found in %s chain", want, res.Chain.Symbol)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(cfg.Logging.Level, cfg.Logging.File)
		srv := api.NewServer(cfg, logger)
		return srv.ListenAndServe(cfg.API.Addr())
	},
}

// --- helpers ---

func newRepository() *chain.Repository {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.File)
	return chain.NewRepository(chain.RepositoryConfig{
		Weeks:  cfg.Chain.Weeks,
		TTL:    cfg.Chain.CacheTTL(),
		Seed:   cfg.Chain.Seed,
		Logger: logger,
	})
}

func printContracts(contracts []models.Contract) {
	fmt.Printf("%-22s %9s %8s %8s %8s %7s %7s %7s %7s %7s %s\n",
		"CONTRACT", "STRIKE", "LAST", "BID", "ASK", "VOL", "OI", "IV%", "PRED%", "DELTA", "SIGNAL")
	for _, c := range contracts {
		signal := ""
		if c.Recommended {
			signal = c.Action
		}
		fmt.Printf("%-22s %9.2f %8.2f %8.2f %8.2f %7d %7d %7.1f %7.1f %+7.3f %s\n",
			c.ContractSymbol, c.Strike, c.LastPrice, c.Bid, c.Ask,
			c.Volume, c.OpenInterest, c.ImpliedVolatility, c.PredictedVolatility,
			c.Delta, signal)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/chain"
	"ammCore/internal/config"
	"ammCore/internal/model"
	"ammCore/internal/report"
)

func newReservesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reserves",
		Short: "Read a vault's on-chain token balances and optionally quote against them",
		RunE:  runReserves,
	}
	cmd.Flags().String("rpc", "", "EVM RPC URL")
	cmd.Flags().StringSlice("tokens", nil, "token0,token1 addresses")
	cmd.Flags().String("vault", "", "address holding the pool reserves")
	cmd.Flags().Uint64("block", 0, "block number, 0 pins the current head")
	cmd.Flags().Uint64("quote-in", 0, "optional swap amount to quote against the reserves")
	cmd.Flags().String("direction", "0to1", "quote direction (0to1, 1to0)")
	cmd.Flags().Uint64("fee-numerator", 3, "quote fee numerator")
	cmd.Flags().Uint64("fee-denominator", 1000, "quote fee denominator")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "optional rotating log file")
	return cmd
}

type reservesOutput struct {
	chain.VaultReserves
	Amount0   string       `json:"amount0"`
	Amount1   string       `json:"amount1"`
	SpotPrice string       `json:"spot_price,omitempty"`
	Quote     *quoteOutput `json:"quote,omitempty"`
}

func runReserves(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReserves(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	tokens, err := chain.ParseAddresses(cfg.Tokens)
	if err != nil {
		return err
	}
	if len(tokens) != 2 {
		return fmt.Errorf("exactly two token addresses are required, got %d", len(tokens))
	}
	vault, err := chain.ParseAddress(cfg.Vault)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	vr, err := chain.ReadPinnedVaultReserves(ctx, chainClient, tokens[0], tokens[1], vault, cfg.Block, logger)
	if err != nil {
		return err
	}
	logger.Info("vault reserves",
		zap.Uint64("chain_id", vr.ChainID),
		zap.Uint64("block", vr.Block),
		zap.String("vault", vr.Vault),
		zap.String("method", vr.Method),
		zap.Stringer("balance0", vr.Balance0),
		zap.Stringer("balance1", vr.Balance1),
	)

	out := reservesOutput{
		VaultReserves: vr,
		Amount0:       report.FormatBig(vr.Balance0, vr.Token0.Decimals),
		Amount1:       report.FormatBig(vr.Balance1, vr.Token1.Decimals),
	}

	reserves, narrowErr := vr.Reserves()
	if narrowErr == nil {
		if price, ok := report.SpotPrice(reserves, vr.Token0.Decimals, vr.Token1.Decimals); ok {
			out.SpotPrice = price.String()
		}
	}

	quoteIn, _ := cmd.Flags().GetUint64("quote-in")
	if quoteIn > 0 {
		if narrowErr != nil {
			return narrowErr
		}
		dirName, _ := cmd.Flags().GetString("direction")
		dir, err := model.ParseDirection(dirName)
		if err != nil {
			return err
		}
		state := model.PoolState{}
		state.FeeNumerator, _ = cmd.Flags().GetUint64("fee-numerator")
		state.FeeDenominator, _ = cmd.Flags().GetUint64("fee-denominator")

		q, err := amm.NewSwapEngine().QuoteSwap(state, reserves, quoteIn, dir)
		if err != nil {
			return err
		}
		quoted := withImpact(q)
		out.Quote = &quoted
	}

	return printJSON(cmd.OutOrStdout(), out)
}

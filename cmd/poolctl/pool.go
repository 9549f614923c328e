package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ammCore/internal/model"
	"ammCore/internal/pool"
	"ammCore/internal/report"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pool with a fee schedule",
		RunE:  runInit,
	}
	addPoolFlags(cmd)
	cmd.Flags().Uint64("fee-numerator", 3, "swap fee numerator")
	cmd.Flags().Uint64("fee-denominator", 1000, "swap fee denominator")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	num, _ := cmd.Flags().GetUint64("fee-numerator")
	den, _ := cmd.Flags().GetUint64("fee-denominator")

	info, err := env.service.Init(ctx, env.cfg.Pool, num, den)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), info)
}

func newFundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit an account with a pooled asset",
		RunE:  runFund,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("account", "", "account to credit")
	cmd.Flags().String("asset", "asset0", "asset to credit (asset0, asset1)")
	cmd.Flags().Uint64("amount", 0, "raw amount")
	return cmd
}

func runFund(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	account, _ := cmd.Flags().GetString("account")
	assetName, _ := cmd.Flags().GetString("asset")
	amount, _ := cmd.Flags().GetUint64("amount")
	asset, err := model.ParseAsset(assetName)
	if err != nil {
		return err
	}

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	holdings, err := env.service.Fund(ctx, env.cfg.Pool, account, asset, amount)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), holdings)
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show pool state, reserves and spot price",
		RunE:  runShow,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("account", "", "also show this account's holdings")
	cmd.Flags().Uint8("decimals0", 0, "display decimals of asset0")
	cmd.Flags().Uint8("decimals1", 0, "display decimals of asset1")
	return cmd
}

type showOutput struct {
	pool.Info
	Reserve0  string          `json:"reserve0"`
	Reserve1  string          `json:"reserve1"`
	SpotPrice string          `json:"spot_price,omitempty"`
	FeeRate   string          `json:"fee_rate"`
	Holdings  *model.Holdings `json:"holdings,omitempty"`
	PoolShare string          `json:"pool_share,omitempty"`
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	d0, _ := cmd.Flags().GetUint8("decimals0")
	d1, _ := cmd.Flags().GetUint8("decimals1")
	account, _ := cmd.Flags().GetString("account")

	info, err := env.service.Info(ctx, env.cfg.Pool)
	if err != nil {
		return err
	}
	feeRate, err := report.FeeRate(info.Pool)
	if err != nil {
		return fmt.Errorf("pool %s: %w", info.PoolID, err)
	}

	out := showOutput{
		Info:     info,
		Reserve0: report.FormatAmount(info.Reserves.Reserve0, d0),
		Reserve1: report.FormatAmount(info.Reserves.Reserve1, d1),
		FeeRate:  feeRate.String(),
	}
	if price, ok := report.SpotPrice(info.Reserves, d0, d1); ok {
		out.SpotPrice = price.String()
	}
	if account != "" {
		holdings, err := env.service.Holdings(ctx, env.cfg.Pool, account)
		if err != nil {
			return err
		}
		out.Holdings = &holdings
		out.PoolShare = report.ShareOf(info.Pool, holdings.Shares).String()
	}
	return printJSON(cmd.OutOrStdout(), out)
}

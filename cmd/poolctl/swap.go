package main

import (
	"github.com/spf13/cobra"

	"ammCore/internal/model"
	"ammCore/internal/report"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Sell one pooled asset for the other",
		RunE:  runSwap,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("account", "", "trading account")
	cmd.Flags().Uint64("amount-in", 0, "amount of the source asset to sell")
	cmd.Flags().Uint64("min-out", 0, "minimum amount of the destination asset")
	cmd.Flags().String("direction", "0to1", "swap direction (0to1, 1to0)")
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	dirName, _ := cmd.Flags().GetString("direction")
	dir, err := model.ParseDirection(dirName)
	if err != nil {
		return err
	}

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	account, _ := cmd.Flags().GetString("account")
	req := model.SwapRequest{Direction: dir}
	req.AmountIn, _ = cmd.Flags().GetUint64("amount-in")
	req.MinAmountOut, _ = cmd.Flags().GetUint64("min-out")

	res, err := env.service.Swap(ctx, env.cfg.Pool, account, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against the committed reserves",
		RunE:  runQuote,
	}
	addPoolFlags(cmd)
	cmd.Flags().Uint64("amount-in", 0, "amount of the source asset to sell")
	cmd.Flags().String("direction", "0to1", "swap direction (0to1, 1to0)")
	return cmd
}

type quoteOutput struct {
	model.SwapQuote
	PriceImpact string `json:"price_impact,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	dirName, _ := cmd.Flags().GetString("direction")
	dir, err := model.ParseDirection(dirName)
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	q, err := env.service.QuoteSwap(ctx, env.cfg.Pool, amountIn, dir)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), withImpact(q))
}

func withImpact(q model.SwapQuote) quoteOutput {
	out := quoteOutput{SwapQuote: q}
	if impact, err := report.PriceImpact(q); err == nil {
		out.PriceImpact = impact.String()
	}
	return out
}

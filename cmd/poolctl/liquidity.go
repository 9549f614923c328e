package main

import (
	"github.com/spf13/cobra"

	"ammCore/internal/model"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit both assets and mint shares",
		RunE:  runAdd,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("account", "", "depositing account")
	cmd.Flags().Uint64("amount0", 0, "asset0 to deposit")
	cmd.Flags().Uint64("amount1", 0, "maximum asset1 to deposit")
	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	account, _ := cmd.Flags().GetString("account")
	req := model.AddLiquidityRequest{}
	req.Amount0, _ = cmd.Flags().GetUint64("amount0")
	req.Amount1, _ = cmd.Flags().GetUint64("amount1")

	res, err := env.service.AddLiquidity(ctx, env.cfg.Pool, account, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn shares for a pro-rata payout",
		RunE:  runRemove,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("account", "", "withdrawing account")
	cmd.Flags().Uint64("shares", 0, "shares to burn")
	cmd.Flags().Uint64("min-amount0", 0, "minimum asset0 out (0 disables)")
	cmd.Flags().Uint64("min-amount1", 0, "minimum asset1 out (0 disables)")
	return cmd
}

func runRemove(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	env, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	account, _ := cmd.Flags().GetString("account")
	req := model.RemoveLiquidityRequest{}
	req.SharesBurned, _ = cmd.Flags().GetUint64("shares")
	req.MinAmount0Out, _ = cmd.Flags().GetUint64("min-amount0")
	req.MinAmount1Out, _ = cmd.Flags().GetUint64("min-amount1")

	res, err := env.service.RemoveLiquidity(ctx, env.cfg.Pool, account, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/midnight-commit/uniswap-v3-static-quoter/chains/ethereum"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra"
	"github.com/midnight-commit/uniswap-v3-static-quoter/protocols/algebra/calculator"
	"github.com/midnight-commit/uniswap-v3-static-quoter/router"
)

func main() {
	root := &cobra.Command{
		Use:          "quoter",
		Short:        "Static swap quoter for concentrated-liquidity pools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "EVM RPC URL")
	root.PersistentFlags().Uint64("block", 0, "block number to pin reads to, 0 means latest")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a single-pool swap",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().String("token-in", "", "input token address")
	quoteCmd.Flags().String("token-out", "", "output token address")
	quoteCmd.Flags().String("amount-in", "", "exact input amount in base units")
	quoteCmd.Flags().String("price-limit", "", "optional sqrt price limit (Q64.96)")
	quoteCmd.Flags().Uint("decimals-in", 18, "input token decimals, for display")
	quoteCmd.Flags().Uint("decimals-out", 18, "output token decimals, for display")
	root.AddCommand(quoteCmd)

	pathCmd := &cobra.Command{
		Use:   "quote-path",
		Short: "Quote a multi-hop swap across several pools",
		RunE:  runQuotePath,
	}
	pathCmd.Flags().StringSlice("pools", nil, "pool addresses in hop order (comma-separated)")
	pathCmd.Flags().StringSlice("tokens", nil, "token addresses along the path, one more than pools")
	pathCmd.Flags().String("amount-in", "", "exact input amount in base units")
	pathCmd.Flags().Uint("decimals-out", 18, "final token decimals, for display")
	root.AddCommand(pathCmd)

	bestCmd := &cobra.Command{
		Use:   "best-pool",
		Short: "Find the best pool for a pair across factories",
		RunE:  runBestPool,
	}
	bestCmd.Flags().StringSlice("factory", nil, "factory addresses (comma-separated)")
	bestCmd.Flags().String("token-a", "", "first token address")
	bestCmd.Flags().String("token-b", "", "second token address")
	bestCmd.Flags().String("amount-in", "", "optional amount to compare pools by simulated output")
	root.AddCommand(bestCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, Config, *zap.Logger, *ethereum.Client, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, Config{}, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, Config{}, nil, nil, err
	}

	if cfg.RPCURL == "" {
		return nil, nil, Config{}, nil, nil, fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	client, err := ethereum.NewClient(ctx, cfg.RPCURL, newZapAdapter(logger), nil)
	if err != nil {
		stop()
		return nil, nil, Config{}, nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	return ctx, stop, cfg, logger, client, nil
}

func blockNumber(cfg Config) *big.Int {
	if cfg.BlockNumber == 0 {
		return nil
	}
	return new(big.Int).SetUint64(cfg.BlockNumber)
}

func parseAddress(label, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", label, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", s)
	}
	return amount, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, logger, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer logger.Sync()
	defer client.Close()

	poolAddr, err := parseAddress("pool", cfg.Pool)
	if err != nil {
		return err
	}
	tokenIn, err := parseAddress("token-in", cfg.TokenIn)
	if err != nil {
		return err
	}
	tokenOut, err := parseAddress("token-out", cfg.TokenOut)
	if err != nil {
		return err
	}
	amountIn, err := parseAmount(cfg.AmountIn)
	if err != nil {
		return err
	}

	var priceLimit *big.Int
	if cfg.PriceLimit != "" {
		priceLimit, err = parseAmount(cfg.PriceLimit)
		if err != nil {
			return err
		}
	}

	source := client.PoolSource(poolAddr, blockNumber(cfg))
	amountOut, err := calculator.QuoteSingle(ctx, source, tokenIn, tokenOut, amountIn, priceLimit)
	if err != nil {
		return err
	}

	humanIn := decimal.NewFromBigInt(amountIn, -int32(cfg.DecimalsIn))
	humanOut := decimal.NewFromBigInt(amountOut, -int32(cfg.DecimalsOut))
	logger.Info("quote",
		zap.String("pool", poolAddr.Hex()),
		zap.String("amount_in", humanIn.String()),
		zap.String("amount_out", humanOut.String()),
	)
	fmt.Println(amountOut.String())
	return nil
}

func runQuotePath(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, logger, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer logger.Sync()
	defer client.Close()

	if len(cfg.Tokens) != len(cfg.Pools)+1 {
		return fmt.Errorf("need %d tokens for %d pools, got %d", len(cfg.Pools)+1, len(cfg.Pools), len(cfg.Tokens))
	}
	amountIn, err := parseAmount(cfg.AmountIn)
	if err != nil {
		return err
	}

	hops := make([]calculator.Hop, len(cfg.Pools))
	for i, raw := range cfg.Pools {
		poolAddr, err := parseAddress("pool", raw)
		if err != nil {
			return err
		}
		tokenIn, err := parseAddress("token", cfg.Tokens[i])
		if err != nil {
			return err
		}
		tokenOut, err := parseAddress("token", cfg.Tokens[i+1])
		if err != nil {
			return err
		}
		hops[i] = calculator.Hop{
			Source:   client.PoolSource(poolAddr, blockNumber(cfg)),
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
		}
	}

	amountOut, err := calculator.QuotePath(ctx, hops, amountIn)
	if err != nil {
		return err
	}

	humanOut := decimal.NewFromBigInt(amountOut, -int32(cfg.DecimalsOut))
	logger.Info("path quote",
		zap.Int("hops", len(hops)),
		zap.String("amount_out", humanOut.String()),
	)
	fmt.Println(amountOut.String())
	return nil
}

func runBestPool(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, logger, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer logger.Sync()
	defer client.Close()

	if len(cfg.Factories) == 0 {
		return fmt.Errorf("at least one factory address is required")
	}
	tokenA, err := parseAddress("token-a", cfg.TokenA)
	if err != nil {
		return err
	}
	tokenB, err := parseAddress("token-b", cfg.TokenB)
	if err != nil {
		return err
	}

	finders := make([]algebra.PoolFinder, len(cfg.Factories))
	for i, raw := range cfg.Factories {
		factoryAddr, err := parseAddress("factory", raw)
		if err != nil {
			return err
		}
		finders[i] = client.Factory(factoryAddr, blockNumber(cfg))
	}

	r := router.New(newZapAdapter(logger), finders...)

	if cfg.AmountIn != "" {
		amountIn, err := parseAmount(cfg.AmountIn)
		if err != nil {
			return err
		}
		best, amountOut, err := r.BestQuote(ctx, tokenA, tokenB, amountIn)
		if err != nil {
			return err
		}
		pool := best.(*ethereum.PoolSource)
		logger.Info("best pool by output",
			zap.String("pool", pool.Address().Hex()),
			zap.String("amount_out", amountOut.String()),
		)
		fmt.Println(pool.Address().Hex())
		return nil
	}

	best, err := r.BestPool(ctx, tokenA, tokenB)
	if err != nil {
		return err
	}
	pool := best.(*ethereum.PoolSource)
	logger.Info("best pool by liquidity", zap.String("pool", pool.Address().Hex()))
	fmt.Println(pool.Address().Hex())
	return nil
}

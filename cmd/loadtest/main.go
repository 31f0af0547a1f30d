package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	grpcadapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	grpcpool "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
)

const (
	modeWithdraw = "withdraw"
	modeTransfer = "transfer"
)

type options struct {
	target      string
	mode        string
	account     int64
	to          int64
	amount      string
	requests    int
	concurrency int
	timeout     time.Duration
}

var opts options

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.target, "target", "localhost:50051", "Ledger gRPC address")
	f.StringVar(&opts.mode, "mode", modeWithdraw, "withdraw: drain one account; transfer: move money back and forth between two accounts")
	f.Int64Var(&opts.account, "account", 1001, "Account to withdraw from (transfer: first account)")
	f.Int64Var(&opts.to, "to", 1002, "Second account in transfer mode")
	f.StringVar(&opts.amount, "amount", "10", "Amount per request")
	f.IntVarP(&opts.requests, "requests", "n", 1000, "Total requests")
	f.IntVarP(&opts.concurrency, "concurrency", "c", 100, "Requests in flight")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Overall deadline")
}

var rootCmd = &cobra.Command{
	Use:          "loadtest",
	Short:        "Fire concurrent ledger operations and check balances stay consistent",
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// counters 統計各種結果
type counters struct {
	ok       atomic.Int64
	rejected atomic.Int64 // 餘額不足
	failed   atomic.Int64
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logger.Config{Level: "info", Format: "console"})
	if err != nil {
		return err
	}
	defer log.Sync()

	amount, err := decimal.NewFromString(opts.amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("amount must be a positive decimal, got %q", opts.amount)
	}
	if opts.mode != modeWithdraw && opts.mode != modeTransfer {
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
	if opts.concurrency <= 0 {
		opts.concurrency = 1
	}

	pool := grpcpool.NewPool()
	defer pool.Close()
	conn, err := pool.GetConnection(opts.target)
	if err != nil {
		return err
	}
	client := grpcadapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	before, err := snapshot(ctx, client)
	if err != nil {
		return err
	}

	var stats counters
	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.concurrency)
	start := time.Now()

	for i := 0; i < opts.requests; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			var err error
			if opts.mode == modeTransfer {
				from, to := opts.account, opts.to
				if idx%2 == 1 {
					from, to = to, from
				}
				_, err = client.Transfer(ctx, from, to, amount)
			} else {
				_, err = client.Withdraw(ctx, opts.account, amount)
			}
			switch {
			case err == nil:
				stats.ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				stats.rejected.Add(1)
			default:
				if stats.failed.Add(1) <= 10 {
					log.Warn("Request failed", zap.Int("index", idx), zap.Error(err))
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	after, err := snapshot(ctx, client)
	if err != nil {
		return err
	}

	log.Info("Load test finished",
		zap.String("mode", opts.mode),
		zap.Int("requests", opts.requests),
		zap.Int64("ok", stats.ok.Load()),
		zap.Int64("insufficient_funds", stats.rejected.Load()),
		zap.Int64("failed", stats.failed.Load()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rps", float64(opts.requests)/elapsed.Seconds()))

	return verify(log, before, after, amount, stats.ok.Load())
}

// snapshot 讀取參與測試的帳戶餘額
func snapshot(ctx context.Context, client *grpcadapter.Client) (map[int64]decimal.Decimal, error) {
	accounts := []int64{opts.account}
	if opts.mode == modeTransfer {
		accounts = append(accounts, opts.to)
	}
	out := make(map[int64]decimal.Decimal, len(accounts))
	for _, acc := range accounts {
		balance, err := client.CheckBalance(ctx, acc)
		if err != nil {
			return nil, fmt.Errorf("check balance of %d: %w", acc, err)
		}
		out[acc] = balance
	}
	return out, nil
}

// verify 提款模式: 扣款總額等於成功次數 × 金額；轉帳模式: 兩帳戶總額不變
//
// 測試期間若有其他客戶端操作同一帳戶，結果不具參考價值
func verify(log *zap.Logger, before, after map[int64]decimal.Decimal, amount decimal.Decimal, ok int64) error {
	if opts.mode == modeTransfer {
		totalBefore := before[opts.account].Add(before[opts.to])
		totalAfter := after[opts.account].Add(after[opts.to])
		if !totalBefore.Equal(totalAfter) {
			return fmt.Errorf("money not conserved: total %s before, %s after", totalBefore, totalAfter)
		}
		log.Info("Total conserved", zap.Stringer("total", totalAfter))
		return nil
	}

	expected := before[opts.account].Sub(amount.Mul(decimal.NewFromInt(ok)))
	if !after[opts.account].Equal(expected) {
		return fmt.Errorf("balance %s, want %s after %d withdrawals", after[opts.account], expected, ok)
	}
	if after[opts.account].IsNegative() {
		return fmt.Errorf("balance went negative: %s", after[opts.account])
	}
	log.Info("Balance consistent",
		zap.Stringer("before", before[opts.account]),
		zap.Stringer("after", after[opts.account]))
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

const adminTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountOpenCmd)

	userCreateCmd.Flags().StringP("password", "p", "", "Password (stored as a bcrypt hash)")
	_ = userCreateCmd.MarkFlagRequired("password")

	accountOpenCmd.Flags().StringP("user", "u", "", "Owning user ID")
	accountOpenCmd.Flags().String("type", "checking", "Account type")
	accountOpenCmd.Flags().String("owner", "", "Owner name")
	accountOpenCmd.Flags().String("balance", "0", "Opening balance")
	accountOpenCmd.Flags().String("address", "", "Owner address")
	accountOpenCmd.Flags().String("phone", "", "Owner phone number")
	accountOpenCmd.Flags().String("card", "", "Card number")
	accountOpenCmd.Flags().String("expiry", "", "Card expiration date")
	accountOpenCmd.Flags().String("pin", "", "Card PIN")
	_ = accountOpenCmd.MarkFlagRequired("user")
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create [user-id]",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open an account for an existing user (the store assigns the number)",
	RunE:  runAccountOpen,
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	userID := args[0]
	password, _ := cmd.Flags().GetString("password")
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}

	b, err := openBackend(cfg, log, true)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
	defer cancel()
	if err := b.store.CreateUser(ctx, userID, password); err != nil {
		return err
	}
	log.Info("User created", zap.String("user_id", userID))
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", userID)
	return nil
}

func runAccountOpen(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	userID, _ := flags.GetString("user")
	accType, _ := flags.GetString("type")
	owner, _ := flags.GetString("owner")
	balanceStr, _ := flags.GetString("balance")
	address, _ := flags.GetString("address")
	phone, _ := flags.GetString("phone")
	card, _ := flags.GetString("card")
	expiry, _ := flags.GetString("expiry")
	pin, _ := flags.GetString("pin")

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return fmt.Errorf("%w: balance %q", domain.ErrInvalidInput, balanceStr)
	}
	if owner == "" {
		owner = userID
	}

	b, err := openBackend(cfg, log, true)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
	defer cancel()
	acc, err := b.store.OpenAccount(ctx, &domain.Account{
		UserID:         userID,
		Balance:        balance,
		Type:           accType,
		OwnerName:      owner,
		Address:        address,
		PhoneNumber:    phone,
		CardNumber:     card,
		ExpirationDate: expiry,
		PIN:            pin,
	})
	if err != nil {
		return err
	}
	log.Info("Account opened",
		zap.String("user_id", acc.UserID),
		zap.Int64("account_number", acc.AccountNumber),
		zap.Stringer("balance", acc.Balance))
	fmt.Fprintf(cmd.OutOrStdout(), "opened account %d for %s (balance %s)\n", acc.AccountNumber, acc.UserID, acc.Balance)
	return nil
}

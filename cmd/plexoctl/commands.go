package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
				if email != "" {
					user, err := svc.Views().GetUserByEmail(ctx, lifecycle.NormalizeEmail(email))
					if err != nil {
						return err
					}
					return printUsers(cmd.OutOrStdout(), []models.User{user}, opts.jsonOut)
				}
				users, err := svc.Views().GetAllUsers(ctx)
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), users, opts.jsonOut)
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "show only the user with this email")
	return cmd
}

func newInventoryCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "inventory USER_ID",
		Short: "List a user's unlisted items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
				var (
					items []models.Item
					err   error
				)
				if all {
					items, err = svc.Views().GetUserItems(ctx, args[0])
				} else {
					items, err = svc.Views().GetUserInventory(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items, opts.jsonOut)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include the user's listed items")
	return cmd
}

func newMarketCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "List every item on the market, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
				items, err := svc.Views().GetMarketItems(ctx)
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items, opts.jsonOut)
			})
		},
	}
}

func newChatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chats USER_ID",
		Short: "List a user's chats, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
				chats, err := svc.Views().GetUserChats(ctx, args[0])
				if err != nil {
					return err
				}
				return printChats(cmd.OutOrStdout(), chats, opts.jsonOut)
			})
		},
	}
}

func newMessagesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "messages CHAT_ID",
		Short: "Print the messages of a chat in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
				msgs, err := svc.Views().GetChatMessages(ctx, args[0])
				if err != nil {
					return err
				}
				return printMessages(cmd.OutOrStdout(), msgs, opts.jsonOut)
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every user, item, chat and message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all data; pass --yes to confirm")
			}
			return opts.withService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
				if err := svc.ClearAll(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "store cleared")
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/menusready/internal/authorization"
	operatordomain "github.com/smallbiznis/menusready/internal/operator/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

func newCreateOperatorCmd() *cobra.Command {
	var (
		email string
		role  string
	)

	cmd := &cobra.Command{
		Use:   "create-operator",
		Short: "Create an admin operator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var operators operatordomain.Service

			return runOnce(cmd.Context(), func(ctx context.Context) error {
				op, err := operators.Create(ctx, operatordomain.CreateRequest{
					Email:    email,
					Password: viper.GetString("operator.password"),
					Role:     role,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "operator %s created (id=%s role=%s)\n", op.Email, op.ID, op.Role)
				return nil
			}, fx.Populate(&operators))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Operator email")
	cmd.Flags().StringVar(&role, "role", authorization.RoleOperator, "Operator role (operator, support)")
	cmd.Flags().String("password", "", "Operator password (or MENUSREADY_OPERATOR_PASSWORD)")
	if err := viper.BindPFlag("operator.password", cmd.Flags().Lookup("password")); err != nil {
		panic(err)
	}
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newIssueOperatorTokenCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "issue-operator-token",
		Short: "Issue an admin access token for an existing operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var operators operatordomain.Service

			return runOnce(cmd.Context(), func(ctx context.Context) error {
				token, err := operators.IssueToken(ctx, email)
				if err != nil {
					return err
				}
				return writeJSON(cmd, token)
			}, fx.Populate(&operators))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Operator email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

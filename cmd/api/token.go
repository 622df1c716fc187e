package main

import (
	"fmt"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/service"

	"github.com/spf13/cobra"
)

var (
	tokenUser         string
	tokenRole         string
	tokenSecondFactor bool
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an operator",
		Long: `Mint a signed access token with the configured JWT secret.

Examples:
  cpo token --user alice --role OWNER --2fa
  cpo token --user ops --role FINANCE_ADMIN`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}

	cmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id to embed in the token")
	cmd.Flags().StringVarP(&tokenRole, "role", "r", string(domain.RoleOwner), "role (SUPER_ADMIN, OWNER, FINANCE_ADMIN, CONTRACTOR)")
	cmd.Flags().BoolVar(&tokenSecondFactor, "2fa", false, "mark the session as second-factor verified")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}

	role := domain.Role(tokenRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", tokenRole)
	}

	tokens := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	token, expiresAt, err := tokens.Generate(tokenUser, role, tokenSecondFactor)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

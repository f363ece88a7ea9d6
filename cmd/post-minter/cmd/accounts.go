package cmd

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/post-minter/pkg/solana/tokensale"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts <payer> <mint>",
	Short: "Print the accounts a token sale for payer and mint would use",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conf, shutdown, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown()

		program, _ := conf.Program()

		keys := make([]ed25519.PublicKey, len(args))
		for i, arg := range args {
			if keys[i], err = base58.Decode(arg); err != nil || len(keys[i]) != ed25519.PublicKeySize {
				return errors.Errorf("invalid address %q", arg)
			}
		}

		accounts, err := tokensale.DeriveCreateTokenSaleAccounts(program, keys[0], keys[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, a := range []struct {
			name string
			key  ed25519.PublicKey
		}{
			{"program", program},
			{"factory_config", accounts.FactoryConfig},
			{"sale_config", accounts.SaleConfig},
			{"dev_token_account", accounts.DevTokenAccount},
			{"metadata", accounts.Metadata},
			{"master_edition", accounts.MasterEdition},
			{"price_cache", accounts.PriceCache},
		} {
			fmt.Fprintf(out, "%-18s %s\n", a.name, base58.Encode(a.key))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

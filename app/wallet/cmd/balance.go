package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance and sku holdings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		publicKey := signature.EncodePublicKey(&privateKey.PublicKey)

		resp, err := http.Get(fmt.Sprintf("%s/v1/accounts/%s", nodeURL, publicKey))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("node responded with %s", resp.Status)
		}

		var account struct {
			Balance  int64 `json:"balance"`
			Holdings []struct {
				Sku    string `json:"sku"`
				Amount int64  `json:"amount"`
			} `json:"holdings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "For Public Key:", publicKey)
		fmt.Fprintln(cmd.OutOrStdout(), "Balance:", account.Balance)
		for _, h := range account.Holdings {
			fmt.Fprintf(cmd.OutOrStdout(), "Sku %s: %d\n", h.Sku, h.Amount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

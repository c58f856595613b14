package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Verify the hash and signature of a signed transaction",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		content, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		var tx database.Tx
		if err := json.Unmarshal(content, &tx); err != nil {
			return fmt.Errorf("decoding transaction: %w", err)
		}

		if err := tx.Validate(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "valid: tx[%s] signed by %s\n", tx.Hash(), tx.Signer())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

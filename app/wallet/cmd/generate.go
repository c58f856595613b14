package cmd

import (
	"fmt"
	"os"

	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.GenerateKey()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(accountPath, 0755); err != nil {
			return err
		}

		path := getPrivateKeyPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("key file %s already exists", path)
		}

		if err := crypto.SaveECDSA(path, privateKey); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), signature.EncodePublicKey(&privateKey.PublicKey))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

package cmd

import (
	"fmt"

	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var showHex bool

// addressCmd represents the address command
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the public key for the specific wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), signature.EncodePublicKey(&privateKey.PublicKey))
		if showHex {
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(crypto.CompressPubkey(&privateKey.PublicKey)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().BoolVarP(&showHex, "hex", "x", false, "Also print the compressed key as hex.")
}

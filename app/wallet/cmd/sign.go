package cmd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	action       string
	recipient    string
	amount       int64
	fee          int64
	data         string
	skuBlockHash string
	skuTxIndex   int
	submit       bool
)

// signCmd represents the sign command
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Build, sign, and optionally submit a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}

		act, err := database.ParseAction(action)
		if err != nil {
			return err
		}

		tx := database.NewTx(genesis.TransactionVersion, act, data, fee, database.StateTx{
			Sender:       signature.EncodePublicKey(&privateKey.PublicKey),
			Recipient:    recipient,
			SkuBlockHash: skuBlockHash,
			SkuTxIndex:   skuTxIndex,
			Amount:       amount,
		})

		if err := database.FinalizeTx(tx, hex.EncodeToString(crypto.FromECDSA(privateKey))); err != nil {
			return err
		}

		payload, err := json.MarshalIndent(tx, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))

		if !submit {
			return nil
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", nodeURL), "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("node rejected the transaction: %s", body)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVar(&action, "action", "TransferToken", "Transaction action.")
	signCmd.Flags().StringVarP(&recipient, "to", "t", "", "Public key of the recipient.")
	signCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount of tokens or supply.")
	signCmd.Flags().Int64VarP(&fee, "fee", "f", 1, "Fee for the action.")
	signCmd.Flags().StringVarP(&data, "data", "d", "", "Sku data as json.")
	signCmd.Flags().StringVar(&skuBlockHash, "sku-block", "", "Hash of the block that created the sku.")
	signCmd.Flags().IntVar(&skuTxIndex, "sku-index", 0, "Index of the CreateSku transaction in its block.")
	signCmd.Flags().BoolVarP(&submit, "submit", "s", false, "Submit the transaction to the node.")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"runewallet/pkg/crypto_util"
	"runewallet/pkg/keystore"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <keystore-file>",
	Short: "解密 Keystore 并显示地址",
	Long:  `输入密码解密 Keystore 文件, 显示派生地址和指纹。助记词默认不显示。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reveal, _ := cmd.Flags().GetBool("reveal")

		encryptedKey, err := keystore.LoadFromFile(args[0])
		if err != nil {
			return fmt.Errorf("读取 Keystore 失败: %w", err)
		}

		password, err := readPassword("输入密码: ")
		if err != nil {
			return fmt.Errorf("读取密码失败: %w", err)
		}
		defer crypto_util.Zero(password)

		mnemonic, err := keystore.DecryptMnemonic(encryptedKey, password)
		if err != nil {
			return fmt.Errorf("解密失败: %w", err)
		}
		defer crypto_util.Zero(mnemonic)

		address, err := deriveAddress(string(mnemonic))
		if err != nil {
			return err
		}

		fmt.Printf("Keystore ID: %s\n", encryptedKey.Id)
		fmt.Printf("地址:        %s\n", address)
		fmt.Printf("指纹:        %s\n", crypto_util.WalletFingerprint(address))

		if reveal {
			fmt.Println("\n---------------------------------------------------")
			fmt.Println("助记词:")
			fmt.Println(string(mnemonic))
			fmt.Println("---------------------------------------------------")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("reveal", false, "同时显示解密后的助记词")
}

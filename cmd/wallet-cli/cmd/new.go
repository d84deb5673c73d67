package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"runewallet/pkg/crypto_util"
	"runewallet/pkg/hdwallet"
	"runewallet/pkg/keystore"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新钱包并加密保存",
	Long:  `生成 24 词 BIP-39 助记词, 用密码加密为 Keystore 文件, 并打印 THORChain 地址。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, _ := cmd.Flags().GetString("output")
		if _, err := os.Stat(outputFile); err == nil {
			return fmt.Errorf("文件 %s 已存在, 请先删除或指定其他文件名", outputFile)
		}

		password, err := readNewPassword()
		if err != nil {
			return err
		}
		defer crypto_util.Zero(password)

		mnemonic, err := hdwallet.GenerateMnemonic(256)
		if err != nil {
			return fmt.Errorf("生成助记词失败: %w", err)
		}

		address, err := deriveAddress(mnemonic)
		if err != nil {
			return err
		}

		encryptedKey, err := keystore.EncryptMnemonic(mnemonic, password)
		if err != nil {
			return fmt.Errorf("加密失败: %w", err)
		}
		if err := encryptedKey.SaveToFile(outputFile); err != nil {
			return fmt.Errorf("保存文件失败: %w", err)
		}

		fmt.Printf("\n钱包已创建\n")
		fmt.Printf("文件位置: %s\n", outputFile)
		fmt.Printf("地址:     %s\n", address)
		fmt.Printf("指纹:     %s\n", crypto_util.WalletFingerprint(address))
		fmt.Println("\n警告: 丢失密码将无法恢复钱包, 请妥善备份助记词。")

		fmt.Print("\n是否现在显示助记词以便备份? (y/N): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if s := strings.TrimSpace(strings.ToLower(input)); s == "y" || s == "yes" {
			fmt.Println("\n---------------------------------------------------")
			fmt.Println("助记词 (请抄写在纸上并安全保管):")
			fmt.Println(mnemonic)
			fmt.Println("---------------------------------------------------")
		}
		return nil
	},
}

func deriveAddress(mnemonic string) (string, error) {
	hd, err := hdwallet.NewFromMnemonic(mnemonic, "")
	if err != nil {
		return "", fmt.Errorf("助记词无效: %w", err)
	}
	key, err := hd.ThorKey()
	if err != nil {
		return "", fmt.Errorf("派生密钥失败: %w", err)
	}
	pubKey, err := key.ECPubKey()
	if err != nil {
		return "", err
	}
	return hdwallet.ThorAddress(pubKey)
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", "wallet.json", "输出的 Keystore 文件名")
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"runewallet/pkg/crypto_util"
	"runewallet/pkg/keystore"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "从助记词恢复钱包",
	Long:  `读取已有的 BIP-39 助记词, 校验后用密码加密为 Keystore 文件。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, _ := cmd.Flags().GetString("output")
		if _, err := os.Stat(outputFile); err == nil {
			return fmt.Errorf("文件 %s 已存在, 请先删除或指定其他文件名", outputFile)
		}

		fmt.Println("请输入助记词 (单行, 空格分隔):")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("读取助记词失败: %w", err)
		}
		mnemonic := strings.Join(strings.Fields(line), " ")

		// 先派生地址, 顺带校验助记词
		address, err := deriveAddress(mnemonic)
		if err != nil {
			return err
		}

		password, err := readNewPassword()
		if err != nil {
			return err
		}
		defer crypto_util.Zero(password)

		encryptedKey, err := keystore.EncryptMnemonic(mnemonic, password)
		if err != nil {
			return fmt.Errorf("加密失败: %w", err)
		}
		if err := encryptedKey.SaveToFile(outputFile); err != nil {
			return fmt.Errorf("保存文件失败: %w", err)
		}

		fmt.Printf("\n钱包已恢复\n")
		fmt.Printf("文件位置: %s\n", outputFile)
		fmt.Printf("地址:     %s\n", address)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringP("output", "o", "wallet.json", "输出的 Keystore 文件名")
}

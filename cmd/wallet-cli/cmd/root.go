package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"runewallet/pkg/crypto_util"
)

var rootCmd = &cobra.Command{
	Use:   "wallet-cli",
	Short: "THORChain 钱包命令行工具",
	Long: `离线管理本地 Keystore 文件:
生成/恢复 BIP-39 助记词, 派生 THORChain 地址, 加密保存。`,
}

// Execute 将所有子命令添加到根命令并执行
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// readPassword 从终端读取密码 (不回显)。返回的字节由调用方清零。
func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return b, err
}

// readNewPassword 读取并二次确认密码
func readNewPassword() ([]byte, error) {
	password, err := readPassword("输入密码: ")
	if err != nil {
		return nil, fmt.Errorf("读取密码失败: %w", err)
	}
	if len(password) < 8 {
		crypto_util.Zero(password)
		return nil, fmt.Errorf("密码长度至少需要 8 位")
	}

	confirm, err := readPassword("确认密码: ")
	if err != nil {
		crypto_util.Zero(password)
		return nil, fmt.Errorf("读取密码失败: %w", err)
	}
	defer crypto_util.Zero(confirm)

	if string(password) != string(confirm) {
		crypto_util.Zero(password)
		return nil, fmt.Errorf("两次输入的密码不一致")
	}
	return password, nil
}

package crypto_util

import (
	"crypto/sha256"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// CalculateSHA256 计算输入的 SHA256 哈希值。
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// CalculateBlake3 计算输入的 Blake3 哈希值。
// Blake3 是一种现代、高性能的加密哈希函数。
func CalculateBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// WalletFingerprint 根据地址生成 8 字节的钱包指纹。
// 用于前端 identicon 种子以及日志中替代完整地址。
func WalletFingerprint(address string) string {
	hash := blake3.Sum256([]byte(address))
	return hex.EncodeToString(hash[:8])
}

// Zero 将字节切片清零。用于密码和解密后的密钥材料。
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

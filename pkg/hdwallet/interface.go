package hdwallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

var (
	ErrInvalidSeed     = errors.New("种子长度必须在 16-64 字节之间")
	ErrInvalidMnemonic = errors.New("无效的助记词")
)

// ExtendedKey 是 BIP-32 扩展密钥的抽象
type ExtendedKey interface {
	String() string
	ECPubKey() (*btcec.PublicKey, error)
	ECPrivKey() (*btcec.PrivateKey, error)
	Derive(index uint32) (ExtendedKey, error)
	IsPrivate() bool
	Neuter() (ExtendedKey, error)
}

package asset

import (
	"errors"
	"fmt"
	"strings"
)

// Asset 表示链上资产标识，格式 CHAIN.SYMBOL，例如 BTC.BTC、THOR.RUNE。
// 合约代币带有地址后缀，例如 ETH.USDC-0XA0B8...。
type Asset struct {
	Chain  string
	Symbol string
}

var (
	ErrInvalidFormat = errors.New("asset must have exactly two dot-separated components")
)

// RUNE 链的原生结算资产
var RUNE = Asset{Chain: "THOR", Symbol: "RUNE"}

// gasChains 是 memoless 流程支持的链白名单。
// 固定列表，与链端支持范围保持一致。
var gasChains = map[string]bool{
	"THOR": true,
	"BTC":  true,
	"BCH":  true,
	"LTC":  true,
	"DOGE": true,
	"ETH":  true,
	"AVAX": true,
	"BSC":  true,
	"GAIA": true,
}

// nativeDecimals 各链原生资产的小数位数。
// 金额编码的精度边界由此决定。
var nativeDecimals = map[string]int32{
	"THOR": 8,
	"BTC":  8,
	"BCH":  8,
	"LTC":  8,
	"DOGE": 8,
	"GAIA": 6,
	"ETH":  18,
	"AVAX": 18,
	"BSC":  18,
}

// Parse 解析 CHAIN.SYMBOL 格式的资产标识
func Parse(s string) (Asset, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return Asset{
		Chain:  strings.ToUpper(parts[0]),
		Symbol: strings.ToUpper(parts[1]),
	}, nil
}

func (a Asset) String() string {
	return a.Chain + "." + a.Symbol
}

func (a Asset) IsZero() bool {
	return a.Chain == "" && a.Symbol == ""
}

// IsGasAsset 判断是否为链原生 Gas 资产：
// Symbol 不含合约地址后缀 (无连字符)，且链在白名单内。
func (a Asset) IsGasAsset() bool {
	if a.Chain == "" || a.Symbol == "" {
		return false
	}
	if strings.Contains(a.Symbol, "-") {
		return false // 带地址后缀的是合约代币
	}
	return gasChains[a.Chain]
}

// ChainSupported 链是否在白名单内
func ChainSupported(chain string) bool {
	return gasChains[chain]
}

// Decimals 返回该资产所属链的原生小数位数。
// 未知链返回 8 (链端的通用精度)。
func (a Asset) Decimals() int32 {
	if d, ok := nativeDecimals[a.Chain]; ok {
		return d
	}
	return 8
}

package memoless

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"runewallet/pkg/logger"
)

// uriTemplates 各链的 BIP21 风格支付 URI 模板 (address, amount)
var uriTemplates = map[string]string{
	"BTC":  "bitcoin:%s?amount=%s",
	"LTC":  "litecoin:%s?amount=%s",
	"BCH":  "bitcoincash:%s?amount=%s",
	"DOGE": "dogecoin:%s?amount=%s",
	"ETH":  "ethereum:%s?value=%s",
	"AVAX": "ethereum:%s?value=%s",
	"BSC":  "ethereum:%s?value=%s",
	"GAIA": "cosmos:%s?amount=%s",
	"THOR": "thorchain:%s?amount=%s",
}

// DepositURI 构造二维码的支付负载。
// 未知链有意回退为裸金额, 并记录区别于其它失败的 warning, 而不是报错。
func DepositURI(chain, address string, amount decimal.Decimal) (string, bool) {
	tmpl, ok := uriTemplates[chain]
	if !ok {
		logger.Warn("未知链, QR 负载回退为裸金额", zap.String("chain", chain))
		return amount.String(), false
	}
	return fmt.Sprintf(tmpl, address, amount.String()), true
}

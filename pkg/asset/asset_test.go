package asset

import (
	"testing"
)

func TestParse(t *testing.T) {
	a, err := Parse("BTC.BTC")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if a.Chain != "BTC" || a.Symbol != "BTC" {
		t.Errorf("解析结果错误: %+v", a)
	}

	// 小写输入应规范化为大写
	a, err = Parse("eth.eth")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if a.String() != "ETH.ETH" {
		t.Errorf("期望 ETH.ETH, 实际 %s", a.String())
	}

	// 非法格式
	for _, s := range []string{"", "BTC", "BTC.BTC.BTC", ".BTC", "BTC."} {
		if _, err := Parse(s); err == nil {
			t.Errorf("期望 %q 解析失败, 实际成功", s)
		}
	}
}

func TestIsGasAsset(t *testing.T) {
	cases := []struct {
		asset string
		want  bool
	}{
		{"BTC.BTC", true},
		{"THOR.RUNE", true},
		{"ETH.ETH", true},
		{"GAIA.ATOM", true},
		{"ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", false}, // 合约代币
		{"AVAX.USDT-0X9702230A8EA53601F5CD2DC00FDBC13D4DF4A8C7", false},
		{"SOL.SOL", false}, // 链不在白名单
		{"XMR.XMR", false},
	}

	for _, c := range cases {
		a, err := Parse(c.asset)
		if err != nil {
			t.Fatalf("解析 %s 失败: %v", c.asset, err)
		}
		if got := a.IsGasAsset(); got != c.want {
			t.Errorf("IsGasAsset(%s) = %v, want %v", c.asset, got, c.want)
		}
	}

	// 零值不是 Gas 资产
	if (Asset{}).IsGasAsset() {
		t.Error("零值 Asset 不应通过 Gas 资产检查")
	}
}

func TestDecimals(t *testing.T) {
	cases := map[string]int32{
		"BTC.BTC":   8,
		"THOR.RUNE": 8,
		"ETH.ETH":   18,
		"GAIA.ATOM": 6,
	}
	for s, want := range cases {
		a, _ := Parse(s)
		if got := a.Decimals(); got != want {
			t.Errorf("Decimals(%s) = %d, want %d", s, got, want)
		}
	}

	// 未知链使用默认精度
	a := Asset{Chain: "SOL", Symbol: "SOL"}
	if a.Decimals() != 8 {
		t.Errorf("未知链默认精度应为 8, 实际 %d", a.Decimals())
	}
}

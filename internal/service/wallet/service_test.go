package wallet

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"runewallet/internal/model"
	"runewallet/internal/service/txwizard"
	"runewallet/pkg/asset"
	"runewallet/pkg/errno"
	"runewallet/pkg/keystore"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testWallet(t *testing.T, password []byte) *model.Wallet {
	t.Helper()
	encrypted, err := keystore.EncryptMnemonic(testMnemonic, password)
	if err != nil {
		t.Fatal(err)
	}
	ksJSON, err := encrypted.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return &model.Wallet{ID: "w1", Name: "test", Keystore: ksJSON}
}

func TestVerifyPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt 派生较慢")
	}
	svc := NewService(nil, nil, "thorchain-1")
	w := testWallet(t, []byte("correct horse"))

	if err := svc.VerifyPassword(w, []byte("correct horse")); err != nil {
		t.Errorf("正确密码被拒绝: %v", err)
	}
	if err := svc.VerifyPassword(w, []byte("wrong")); !errors.Is(err, errno.ErrPasswordIncorrect) {
		t.Errorf("错误密码应返回 ErrPasswordIncorrect, 实际 %v", err)
	}
}

func TestBuildMsg(t *testing.T) {
	rune_, err := asset.Parse("THOR.RUNE")
	if err != nil {
		t.Fatal(err)
	}

	// MsgDeposit: 无收款地址, memo 内嵌
	dep := buildMsg("thor1sender", &txwizard.Params{
		Asset:   rune_,
		Amount:  decimal.RequireFromString("1.5"),
		Memo:    "SWAP:BTC.BTC:bc1q",
		Deposit: true,
	})
	if dep.Type != "thorchain/MsgDeposit" {
		t.Errorf("type = %s", dep.Type)
	}
	if dep.Value["amount"] != "150000000" {
		t.Errorf("1.5 RUNE 应编码为 150000000 基础单位, 实际 %s", dep.Value["amount"])
	}
	if dep.Value["signer"] != "thor1sender" || dep.Value["memo"] != "SWAP:BTC.BTC:bc1q" {
		t.Errorf("deposit value = %v", dep.Value)
	}

	// MsgSend: 带收款地址
	send := buildMsg("thor1sender", &txwizard.Params{
		Asset:       rune_,
		Amount:      decimal.RequireFromString("0.00000001"),
		Destination: "thor1dest",
	})
	if send.Type != "thorchain/MsgSend" {
		t.Errorf("type = %s", send.Type)
	}
	if send.Value["amount"] != "1" {
		t.Errorf("最小单位编码错误: %s", send.Value["amount"])
	}
	if send.Value["to_address"] != "thor1dest" || send.Value["from_address"] != "thor1sender" {
		t.Errorf("send value = %v", send.Value)
	}
}

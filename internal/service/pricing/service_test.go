package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"runewallet/internal/service"
	"runewallet/pkg/asset"
)

type poolsBackend struct {
	service.ChainBackend

	pools []service.Pool
	err   error
	calls int
}

func (b *poolsBackend) Pools(ctx context.Context) ([]service.Pool, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.pools, nil
}

func mustAsset(t *testing.T, s string) asset.Asset {
	t.Helper()
	a, err := asset.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAssetPriceUSD(t *testing.T) {
	backend := &poolsBackend{pools: []service.Pool{
		{Asset: mustAsset(t, "BTC.BTC"), AssetPriceUSD: decimal.RequireFromString("50000"), Status: "Available"},
		{Asset: mustAsset(t, "ETH.ETH"), AssetPriceUSD: decimal.RequireFromString("3000"), Status: "Available"},
		// 暂停的池子和零价格的池子都不应参与定价
		{Asset: mustAsset(t, "DOGE.DOGE"), AssetPriceUSD: decimal.RequireFromString("0.1"), Status: "Staged"},
		{Asset: mustAsset(t, "LTC.LTC"), AssetPriceUSD: decimal.Zero, Status: "Available"},
	}}
	svc := NewService(backend, nil)
	ctx := context.Background()

	p, err := svc.AssetPriceUSD(ctx, mustAsset(t, "BTC.BTC"))
	if err != nil {
		t.Fatalf("AssetPriceUSD 失败: %v", err)
	}
	if p.String() != "50000" {
		t.Errorf("BTC 价格 = %s", p)
	}

	if _, err := svc.AssetPriceUSD(ctx, mustAsset(t, "DOGE.DOGE")); err == nil {
		t.Error("Staged 池子不应有价格")
	}
	if _, err := svc.AssetPriceUSD(ctx, mustAsset(t, "LTC.LTC")); err == nil {
		t.Error("零价格池子不应有价格")
	}

	// 快照未过期时不应重复拉池子
	before := backend.calls
	if _, err := svc.AssetPriceUSD(ctx, mustAsset(t, "ETH.ETH")); err != nil {
		t.Fatal(err)
	}
	if backend.calls != before {
		t.Errorf("命中快照仍拉取了池子: %d → %d", before, backend.calls)
	}
}

func TestStaleSnapshotFallback(t *testing.T) {
	backend := &poolsBackend{pools: []service.Pool{
		{Asset: mustAsset(t, "BTC.BTC"), AssetPriceUSD: decimal.RequireFromString("50000"), Status: "Available"},
	}}
	svc := NewService(backend, nil)
	ctx := context.Background()

	if _, err := svc.AssetPriceUSD(ctx, mustAsset(t, "BTC.BTC")); err != nil {
		t.Fatal(err)
	}

	// 快照过期且后端不可用: 退回过期快照
	svc.mu.Lock()
	svc.fetchedAt = svc.fetchedAt.Add(-2 * svc.ttl)
	svc.mu.Unlock()
	backend.err = errors.New("node down")

	p, err := svc.AssetPriceUSD(ctx, mustAsset(t, "BTC.BTC"))
	if err != nil {
		t.Fatalf("应退回过期快照: %v", err)
	}
	if p.String() != "50000" {
		t.Errorf("过期快照价格 = %s", p)
	}

	// 从未有过快照的资产在后端不可用时直接失败
	if _, err := svc.AssetPriceUSD(ctx, mustAsset(t, "GAIA.ATOM")); err == nil {
		t.Error("无快照且后端不可用时应失败")
	}
}

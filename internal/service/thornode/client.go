package thornode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"runewallet/internal/service"
	"runewallet/pkg/asset"
	"runewallet/pkg/logger"
	"runewallet/pkg/monitor"
)

// Client 通过 REST 接口访问链节点，实现 service.ChainBackend。
// 所有接口都可能失败，调用方负责重试策略。
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// get 请求并解析 JSON，同时记录耗时指标
func (c *Client) get(ctx context.Context, endpoint, path string, out interface{}) error {
	start := time.Now()
	defer func() {
		if monitor.Business != nil {
			monitor.Business.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("后端请求失败 %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("后端返回 %d (%s): %s", resp.StatusCode, endpoint, truncate(body, 200))
	}

	return json.Unmarshal(body, out)
}

func (c *Client) post(ctx context.Context, endpoint, path string, in, out interface{}) error {
	start := time.Now()
	defer func() {
		if monitor.Business != nil {
			monitor.Business.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("后端请求失败 %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("后端返回 %d (%s): %s", resp.StatusCode, endpoint, truncate(body, 200))
	}

	return json.Unmarshal(body, out)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// ---- 链查询 ----

type poolJSON struct {
	Asset         string `json:"asset"`
	AssetPriceUSD string `json:"asset_price_usd"`
	Status        string `json:"status"`
}

func (c *Client) Pools(ctx context.Context) ([]service.Pool, error) {
	var raw []poolJSON
	if err := c.get(ctx, "pools", "/thorchain/pools", &raw); err != nil {
		return nil, err
	}

	pools := make([]service.Pool, 0, len(raw))
	for _, p := range raw {
		a, err := asset.Parse(p.Asset)
		if err != nil {
			logger.Warn("跳过无法解析的池子资产", zap.String("asset", p.Asset))
			continue
		}
		price, err := decimal.NewFromString(p.AssetPriceUSD)
		if err != nil {
			price = decimal.Zero
		}
		pools = append(pools, service.Pool{Asset: a, AssetPriceUSD: price, Status: p.Status})
	}
	return pools, nil
}

func (c *Client) NetworkInfo(ctx context.Context) (*service.NetworkInfo, error) {
	var raw struct {
		BlockHeight int64  `json:"block_height"`
		ChainID     string `json:"chain_id"`
	}
	if err := c.get(ctx, "network", "/thorchain/network", &raw); err != nil {
		return nil, err
	}
	return &service.NetworkInfo{BlockHeight: raw.BlockHeight, ChainID: raw.ChainID}, nil
}

func (c *Client) InboundAddresses(ctx context.Context) ([]service.InboundAddress, error) {
	var raw []struct {
		Chain         string `json:"chain"`
		Address       string `json:"address"`
		DustThreshold string `json:"dust_threshold"`
		Halted        bool   `json:"halted"`
	}
	if err := c.get(ctx, "inbound_addresses", "/thorchain/inbound_addresses", &raw); err != nil {
		return nil, err
	}

	result := make([]service.InboundAddress, 0, len(raw))
	for _, in := range raw {
		dust, err := decimal.NewFromString(in.DustThreshold)
		if err != nil {
			dust = decimal.Zero
		}
		result = append(result, service.InboundAddress{
			Chain:         in.Chain,
			Address:       in.Address,
			DustThreshold: dust,
			Halted:        in.Halted,
		})
	}
	return result, nil
}

func (c *Client) Mimir(ctx context.Context) (map[string]int64, error) {
	var raw map[string]int64
	if err := c.get(ctx, "mimir", "/thorchain/mimir", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) TrackTransaction(ctx context.Context, txHash string) (*service.TxStatus, error) {
	var raw struct {
		TxHash    string `json:"tx_hash"`
		Height    int64  `json:"height"`
		Confirmed bool   `json:"confirmed"`
		Memo      string `json:"memo"`
	}
	if err := c.get(ctx, "tx", "/thorchain/tx/"+url.PathEscape(txHash), &raw); err != nil {
		return nil, err
	}
	return &service.TxStatus{TxHash: raw.TxHash, Height: raw.Height, Confirmed: raw.Confirmed, Memo: raw.Memo}, nil
}

func (c *Client) AccountInfo(ctx context.Context, address string) (*service.AccountInfo, error) {
	var raw struct {
		AccountNumber uint64 `json:"account_number"`
		Sequence      uint64 `json:"sequence"`
	}
	if err := c.get(ctx, "account", "/thorchain/account/"+url.PathEscape(address), &raw); err != nil {
		return nil, err
	}
	return &service.AccountInfo{AccountNumber: raw.AccountNumber, Sequence: raw.Sequence}, nil
}

func (c *Client) Balances(ctx context.Context, address string) (map[string]decimal.Decimal, error) {
	var raw []struct {
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if err := c.get(ctx, "balances", "/thorchain/balances/"+url.PathEscape(address), &raw); err != nil {
		return nil, err
	}

	balances := make(map[string]decimal.Decimal, len(raw))
	for _, b := range raw {
		amt, err := decimal.NewFromString(b.Amount)
		if err != nil {
			continue
		}
		balances[b.Asset] = amt
	}
	return balances, nil
}

// ---- 交易广播 ----

func (c *Client) Broadcast(ctx context.Context, tx *service.SignedTx) (string, error) {
	var raw struct {
		TxHash string `json:"tx_hash"`
	}
	if err := c.post(ctx, "broadcast", "/thorchain/broadcast", tx, &raw); err != nil {
		return "", err
	}
	if raw.TxHash == "" {
		return "", fmt.Errorf("广播返回空的交易哈希")
	}
	return raw.TxHash, nil
}

// ---- Memoless 协议 ----

type referenceJSON struct {
	ReferenceID string `json:"reference_id"`
	TxID        string `json:"tx_id"`
	Asset       string `json:"asset"`
	Memo        string `json:"memo"`
	Height      int64  `json:"height"`
}

func (r *referenceJSON) toRecord() (*service.ReferenceRecord, error) {
	a, err := asset.Parse(r.Asset)
	if err != nil {
		return nil, fmt.Errorf("注册记录中的资产非法: %w", err)
	}
	return &service.ReferenceRecord{
		ReferenceID: r.ReferenceID,
		TxID:        r.TxID,
		Asset:       a,
		Memo:        r.Memo,
		Height:      r.Height,
	}, nil
}

func (c *Client) ReferenceByTx(ctx context.Context, txHash string) (*service.ReferenceRecord, error) {
	var raw referenceJSON
	if err := c.get(ctx, "memoless_tx", "/thorchain/memoless/tx/"+url.PathEscape(txHash), &raw); err != nil {
		return nil, err
	}
	return raw.toRecord()
}

func (c *Client) ReferenceByID(ctx context.Context, referenceID string) (*service.ReferenceRecord, error) {
	var raw referenceJSON
	if err := c.get(ctx, "memoless_reference", "/thorchain/memoless/reference/"+url.PathEscape(referenceID), &raw); err != nil {
		return nil, err
	}
	return raw.toRecord()
}

// FormatAmountWithReference 请求链端将引用编码进金额的低位精度。
// 编码算法属于链协议常量，这里不做本地实现。
func (c *Client) FormatAmountWithReference(ctx context.Context, a asset.Asset, amount decimal.Decimal, referenceID string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("asset", a.String())
	q.Set("amount", amount.String())
	q.Set("reference", referenceID)

	var raw struct {
		Amount string `json:"amount"`
	}
	if err := c.get(ctx, "memoless_format", "/thorchain/memoless/format?"+q.Encode(), &raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw.Amount)
}

// ValidateAmountForDeposit 独立校验编码后的金额能否还原出注册的 memo
func (c *Client) ValidateAmountForDeposit(ctx context.Context, a asset.Asset, amount decimal.Decimal, memo, referenceID string) error {
	q := url.Values{}
	q.Set("asset", a.String())
	q.Set("amount", amount.String())
	q.Set("memo", memo)
	q.Set("reference", referenceID)

	var raw struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	if err := c.get(ctx, "memoless_validate", "/thorchain/memoless/validate?"+q.Encode(), &raw); err != nil {
		return err
	}
	if !raw.Valid {
		return fmt.Errorf("金额校验未通过: %s", raw.Reason)
	}
	return nil
}

func (c *Client) ReferenceStatus(ctx context.Context, referenceID string) (*service.ReferenceStatus, error) {
	var raw struct {
		UsageCount int64  `json:"usage_count"`
		MaxUse     int64  `json:"max_use"`
		ExpiresAt  string `json:"expires_at"` // RFC3339
	}
	if err := c.get(ctx, "memoless_status", "/thorchain/memoless/status/"+url.PathEscape(referenceID), &raw); err != nil {
		return nil, err
	}

	status := &service.ReferenceStatus{UsageCount: raw.UsageCount, MaxUse: raw.MaxUse}
	if raw.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, raw.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("expires_at 格式非法: %w", err)
		}
		status.ExpiresAt = t
	}
	return status, nil
}

// 编译期断言: Client 实现 ChainBackend
var _ service.ChainBackend = (*Client)(nil)

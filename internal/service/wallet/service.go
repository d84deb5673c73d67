package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runewallet/internal/event"
	"runewallet/internal/model"
	"runewallet/internal/service"
	"runewallet/internal/service/txwizard"
	"runewallet/pkg/crypto_util"
	"runewallet/pkg/errno"
	"runewallet/pkg/hdwallet"
	"runewallet/pkg/keystore"
	"runewallet/pkg/logger"
	"runewallet/pkg/monitor"
)

// MnemonicBits 新建钱包的助记词熵位数 (24 词)
const MnemonicBits = 256

// Service 钱包生命周期与交易签名。
// 私钥材料只在签名期间短暂存在于内存, 用完即清零。
type Service struct {
	db      *gorm.DB
	backend service.ChainBackend
	chainID string
}

func NewService(db *gorm.DB, backend service.ChainBackend, chainID string) *Service {
	return &Service{db: db, backend: backend, chainID: chainID}
}

// Create 生成新钱包。返回的助记词只在此处出现一次, 供用户备份。
func (s *Service) Create(ctx context.Context, name string, password []byte) (*model.Wallet, string, error) {
	mnemonic, err := hdwallet.GenerateMnemonic(MnemonicBits)
	if err != nil {
		return nil, "", fmt.Errorf("生成助记词失败: %w", err)
	}
	w, err := s.importMnemonic(ctx, name, mnemonic, password)
	if err != nil {
		return nil, "", err
	}
	return w, mnemonic, nil
}

// Import 从已有助记词恢复钱包
func (s *Service) Import(ctx context.Context, name, mnemonic string, password []byte) (*model.Wallet, error) {
	return s.importMnemonic(ctx, name, mnemonic, password)
}

func (s *Service) importMnemonic(ctx context.Context, name, mnemonic string, password []byte) (*model.Wallet, error) {
	hd, err := hdwallet.NewFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, errno.ErrInvalidMnemonic
	}
	key, err := hd.ThorKey()
	if err != nil {
		return nil, fmt.Errorf("派生账户密钥失败: %w", err)
	}
	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}
	address, err := hdwallet.ThorAddress(pubKey)
	if err != nil {
		return nil, err
	}

	encrypted, err := keystore.EncryptMnemonic(mnemonic, password)
	if err != nil {
		return nil, fmt.Errorf("加密助记词失败: %w", err)
	}
	ksJSON, err := encrypted.Marshal()
	if err != nil {
		return nil, err
	}

	w := &model.Wallet{
		ID:          uuid.NewString(),
		Name:        name,
		Address:     address,
		Fingerprint: crypto_util.WalletFingerprint(address),
		Keystore:    ksJSON,
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errno.ErrWalletExists
		}
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}

	if monitor.Business != nil {
		monitor.Business.WalletCreatedTotal.Inc()
	}
	logger.Info("钱包已创建",
		zap.String("id", w.ID),
		zap.String("name", name),
		zap.String("address", address))
	return w, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Wallet, error) {
	var w model.Wallet
	err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return &w, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*model.Wallet, error) {
	var w model.Wallet
	err := s.db.WithContext(ctx).First(&w, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return &w, nil
}

func (s *Service) List(ctx context.Context) ([]model.Wallet, error) {
	var ws []model.Wallet
	if err := s.db.WithContext(ctx).Order("created_at").Find(&ws).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return ws, nil
}

// Delete 软删除钱包。删除是密码门控的, 防止误触。
func (s *Service) Delete(ctx context.Context, id string, password []byte) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.VerifyPassword(w, password); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&model.Wallet{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	logger.Info("钱包已删除", zap.String("id", id))
	return nil
}

// VerifyPassword 解密一次并立即清零, 只为确认密码
func (s *Service) VerifyPassword(w *model.Wallet, password []byte) error {
	plain, err := s.decryptMnemonic(w, password)
	if err != nil {
		return err
	}
	crypto_util.Zero(plain)
	return nil
}

// Balances 查询链上余额
func (s *Service) Balances(ctx context.Context, id string) (map[string]decimal.Decimal, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	balances, err := s.backend.Balances(ctx, w.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrBackend, err)
	}
	return balances, nil
}

// Transactions 钱包的广播记录 (新到旧)
func (s *Service) Transactions(ctx context.Context, id string, limit int) ([]model.TransactionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []model.TransactionRecord
	err := s.db.WithContext(ctx).
		Where("wallet_id = ?", id).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return records, nil
}

func (s *Service) decryptMnemonic(w *model.Wallet, password []byte) ([]byte, error) {
	ks, err := keystore.Unmarshal(w.Keystore)
	if err != nil {
		return nil, fmt.Errorf("keystore 损坏: %w", err)
	}
	plain, err := keystore.DecryptMnemonic(ks, password)
	if errors.Is(err, keystore.ErrMACMismatch) {
		return nil, errno.ErrPasswordIncorrect
	}
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// signDoc 是签名输入的规范化表示 (Cosmos SignDoc 风格, 字段按字典序)
type signDoc struct {
	AccountNumber string    `json:"account_number"`
	ChainID       string    `json:"chain_id"`
	Memo          string    `json:"memo"`
	Msgs          []signMsg `json:"msgs"`
	Sequence      string    `json:"sequence"`
}

type signMsg struct {
	Type  string            `json:"type"`
	Value map[string]string `json:"value"`
}

// SignAndBroadcast 实现交易向导的 Signer 契约。
// 密钥即时解密, 签名后立即清零; 广播记录与 outbox 事件在同一事务落库。
func (s *Service) SignAndBroadcast(ctx context.Context, walletID string, password []byte, p *txwizard.Params) (string, error) {
	w, err := s.Get(ctx, walletID)
	if err != nil {
		return "", err
	}

	mnemonic, err := s.decryptMnemonic(w, password)
	if err != nil {
		return "", err
	}
	defer crypto_util.Zero(mnemonic)

	hd, err := hdwallet.NewFromMnemonic(string(mnemonic), "")
	if err != nil {
		return "", errno.ErrInvalidMnemonic
	}
	key, err := hd.ThorKey()
	if err != nil {
		return "", err
	}
	privKey, err := key.ECPrivKey()
	if err != nil {
		return "", err
	}
	defer privKey.Zero()
	pubKey := privKey.PubKey()

	acct, err := s.backend.AccountInfo(ctx, w.Address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errno.ErrBackend, err)
	}

	doc := signDoc{
		AccountNumber: strconv.FormatUint(acct.AccountNumber, 10),
		ChainID:       s.chainID,
		Memo:          p.Memo,
		Msgs:          []signMsg{buildMsg(w.Address, p)},
		Sequence:      strconv.FormatUint(acct.Sequence, 10),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(body)
	sig := ecdsa.Sign(privKey, digest[:])

	txHash, err := s.backend.Broadcast(ctx, &service.SignedTx{
		Body:      body,
		Signature: base64.StdEncoding.EncodeToString(sig.Serialize()),
		PubKey:    hex.EncodeToString(pubKey.SerializeCompressed()),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errno.ErrBroadcastFailed, err)
	}

	if err := s.recordBroadcast(ctx, w.ID, txHash, p); err != nil {
		// 交易已上链, 落库失败只记录不回滚
		logger.Error("广播记录落库失败",
			zap.String("tx", txHash), zap.Error(err))
	}

	logger.Info("交易已广播",
		zap.String("wallet", w.ID),
		zap.String("tx", txHash),
		zap.String("asset", p.Asset.String()),
		zap.Bool("deposit", p.Deposit))
	return txHash, nil
}

func buildMsg(from string, p *txwizard.Params) signMsg {
	// 链端以 1e8 为基础单位
	amount := p.Amount.Shift(8).Truncate(0).String()
	if p.Deposit {
		return signMsg{
			Type: "thorchain/MsgDeposit",
			Value: map[string]string{
				"signer": from,
				"asset":  p.Asset.String(),
				"amount": amount,
				"memo":   p.Memo,
			},
		}
	}
	return signMsg{
		Type: "thorchain/MsgSend",
		Value: map[string]string{
			"from_address": from,
			"to_address":   p.Destination,
			"asset":        p.Asset.String(),
			"amount":       amount,
		},
	}
}

// recordBroadcast 在同一事务里写广播记录和 outbox 事件 (Transactional Outbox)
func (s *Service) recordBroadcast(ctx context.Context, walletID, txHash string, p *txwizard.Params) error {
	payload, err := json.Marshal(event.TransactionBroadcastEvent{
		WalletID: walletID,
		TxHash:   txHash,
		Asset:    p.Asset.String(),
		Amount:   p.Amount.String(),
		Memo:     p.Memo,
		Deposit:  p.Deposit,
	})
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &model.TransactionRecord{
			WalletID:  walletID,
			TxHash:    txHash,
			Asset:     p.Asset.String(),
			Amount:    p.Amount.String(),
			Recipient: p.Destination,
			Memo:      p.Memo,
			Deposit:   p.Deposit,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Create(&model.OutboxMessage{
			Topic:   event.TopicBroadcast,
			Key:     walletID,
			Payload: payload,
			Status:  "PENDING",
		}).Error
	})
}

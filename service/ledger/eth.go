package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	bCtx "github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/ledger"
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrUnknownIntent    = errors.New("unknown intent type")
)

// marketplaceAbiJson is the settlement contract surface this adapter drives.
// Every mutating method takes the correlation ref first so the contract can
// reject a replayed submission.
const marketplaceAbiJson = `[
	{"name":"mint","type":"function","inputs":[{"name":"ref","type":"bytes32"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"tokenUri","type":"string"}]},
	{"name":"purchase","type":"function","inputs":[{"name":"ref","type":"bytes32"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"currency","type":"address"}]},
	{"name":"settle","type":"function","inputs":[{"name":"ref","type":"bytes32"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"currency","type":"address"}]},
	{"name":"statusOf","type":"function","stateMutability":"view","inputs":[{"name":"ref","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]}
]`

// on chain values of statusOf
const (
	chainStatusUnknown   = 0
	chainStatusConfirmed = 1
	chainStatusFailed    = 2
)

const tokenDecimals = 18

var weiPerToken = decimal.New(1, tokenDecimals)

// ethClient is the slice of ethclient.Client this adapter needs, narrowed so
// tests can fake it
type ethClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type EthCfg struct {
	RpcUrls           map[domain.ChainId]string
	ContractAddresses map[domain.ChainId]string
	PrivateKey        string
	Confirmations     uint64
	Metrics           metrics.Service
}

type ethImpl struct {
	clients       map[domain.ChainId]ethClient
	contracts     map[domain.ChainId]common.Address
	abi           abi.ABI
	key           *ecdsa.PrivateKey
	sender        common.Address
	confirmations uint64
	met           metrics.Service

	mu   sync.Mutex
	sent map[ledger.Ref]sentTx
}

// sentTx remembers where a submission went so PollStatus can go straight to
// the receipt
type sentTx struct {
	chainId domain.ChainId
	txHash  common.Hash
}

// NewEth dials every configured rpc and returns a ledger client that signs
// and submits settlement transactions. A chain whose rpc cannot be dialed is
// skipped with a warning so the rest can still serve.
func NewEth(c bCtx.Ctx, cfg *EthCfg) (ledger.Client, error) {
	parsed, err := abi.JSON(strings.NewReader(marketplaceAbiJson))
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, err
	}

	clients := make(map[domain.ChainId]ethClient)
	for chainId, url := range cfg.RpcUrls {
		client, err := ethclient.DialContext(c, url)
		if err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"chainId": chainId,
				"url":     url,
			}).Warn("failed to dial rpc")
			continue
		}
		clients[chainId] = client
	}

	contracts := make(map[domain.ChainId]common.Address)
	for chainId, addr := range cfg.ContractAddresses {
		contracts[chainId] = common.HexToAddress(addr)
	}

	met := cfg.Metrics
	if met == nil {
		met = metrics.New("ledger")
	}

	return &ethImpl{
		clients:       clients,
		contracts:     contracts,
		abi:           parsed,
		key:           key,
		sender:        crypto.PubkeyToAddress(key.PublicKey),
		confirmations: cfg.Confirmations,
		met:           met,
		sent:          map[ledger.Ref]sentTx{},
	}, nil
}

func refToHash(ref ledger.Ref) common.Hash {
	return crypto.Keccak256Hash([]byte(ref))
}

// priceToWei converts a decimal token amount into its integer chain
// representation
func priceToWei(price string) (*big.Int, error) {
	if price == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return d.Mul(weiPerToken).BigInt(), nil
}

// packIntent encodes the contract call for one intent
func (im *ethImpl) packIntent(intent *ledger.Intent, ref ledger.Ref) ([]byte, error) {
	refHash := refToHash(ref)
	tokenId, ok := new(big.Int).SetString(intent.TokenId.String(), 10)
	if !ok {
		return nil, errors.New("malformed token id")
	}

	switch intent.Type {
	case ledger.IntentMint:
		return im.abi.Pack("mint", refHash,
			common.HexToAddress(string(intent.To)),
			tokenId,
			intent.TokenUri,
		)
	case ledger.IntentPurchase, ledger.IntentAuctionSettlement:
		method := "purchase"
		if intent.Type == ledger.IntentAuctionSettlement {
			method = "settle"
		}
		wei, err := priceToWei(intent.Price)
		if err != nil {
			return nil, err
		}
		return im.abi.Pack(method, refHash,
			common.HexToAddress(string(intent.From)),
			common.HexToAddress(string(intent.To)),
			tokenId,
			wei,
			common.HexToAddress(string(intent.Currency)),
		)
	default:
		return nil, ErrUnknownIntent
	}
}

func (im *ethImpl) Submit(c bCtx.Ctx, intent *ledger.Intent, ref ledger.Ref) error {
	defer im.met.BumpTime("submit.time", "intent", string(intent.Type)).End()

	im.mu.Lock()
	_, dup := im.sent[ref]
	im.mu.Unlock()
	if dup {
		return nil
	}

	client, ok := im.clients[intent.ChainId]
	if !ok {
		return ErrUnsupportedChain
	}
	contract, ok := im.contracts[intent.ChainId]
	if !ok {
		return ErrUnsupportedChain
	}

	data, err := im.packIntent(intent, ref)
	if err != nil {
		c.WithField("err", err).Error("packIntent failed")
		return err
	}

	nonce, err := client.PendingNonceAt(c, im.sender)
	if err != nil {
		c.WithField("err", err).Error("client.PendingNonceAt failed")
		return err
	}
	gasPrice, err := client.SuggestGasPrice(c)
	if err != nil {
		c.WithField("err", err).Error("client.SuggestGasPrice failed")
		return err
	}
	gasLimit, err := client.EstimateGas(c, ethereum.CallMsg{
		From: im.sender,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		c.WithField("err", err).Error("client.EstimateGas failed")
		return err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(int64(intent.ChainId))), im.key)
	if err != nil {
		c.WithField("err", err).Error("types.SignTx failed")
		return err
	}

	if err := client.SendTransaction(c, signed); err != nil {
		im.met.BumpSum("submit.err", 1)
		c.WithFields(log.Fields{
			"err": err,
			"ref": ref,
		}).Error("client.SendTransaction failed")
		return err
	}

	im.mu.Lock()
	im.sent[ref] = sentTx{chainId: intent.ChainId, txHash: signed.Hash()}
	im.mu.Unlock()

	c.WithFields(log.Fields{
		"ref":    ref,
		"txHash": signed.Hash().Hex(),
	}).Info("ledger write submitted")
	return nil
}

func (im *ethImpl) PollStatus(c bCtx.Ctx, ref ledger.Ref) (*ledger.SubmitStatus, error) {
	im.mu.Lock()
	tx, known := im.sent[ref]
	im.mu.Unlock()

	if known {
		return im.pollReceipt(c, tx.chainId, ref, tx.txHash)
	}

	// after a restart the tx hash is gone, but the contract still knows the
	// ref; ask every configured chain
	var lastErr error
	for chainId := range im.clients {
		status, err := im.pollContract(c, chainId, ref)
		if err != nil {
			lastErr = err
			continue
		}
		if status.State != ledger.WriteStatusPending {
			return status, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return &ledger.SubmitStatus{State: ledger.WriteStatusPending}, nil
}

func (im *ethImpl) pollReceipt(c bCtx.Ctx, chainId domain.ChainId, ref ledger.Ref, txHash common.Hash) (*ledger.SubmitStatus, error) {
	client, ok := im.clients[chainId]
	if !ok {
		return nil, ErrUnsupportedChain
	}

	receipt, err := client.TransactionReceipt(c, txHash)
	if err == ethereum.NotFound {
		return &ledger.SubmitStatus{State: ledger.WriteStatusPending}, nil
	} else if err != nil {
		c.WithField("err", err).Warn("client.TransactionReceipt failed")
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return &ledger.SubmitStatus{
			State:  ledger.WriteStatusFailed,
			TxHash: domain.TxHash(txHash.Hex()),
			Reason: "transaction reverted",
		}, nil
	}

	head, err := client.BlockNumber(c)
	if err != nil {
		c.WithField("err", err).Warn("client.BlockNumber failed")
		return nil, err
	}
	if head < receipt.BlockNumber.Uint64()+im.confirmations {
		// mined but not yet safe against reorgs
		return &ledger.SubmitStatus{State: ledger.WriteStatusPending}, nil
	}

	return &ledger.SubmitStatus{
		State:  ledger.WriteStatusConfirmed,
		TxHash: domain.TxHash(txHash.Hex()),
	}, nil
}

func (im *ethImpl) pollContract(c bCtx.Ctx, chainId domain.ChainId, ref ledger.Ref) (*ledger.SubmitStatus, error) {
	client, ok := im.clients[chainId]
	if !ok {
		return nil, ErrUnsupportedChain
	}
	contract, ok := im.contracts[chainId]
	if !ok {
		return nil, ErrUnsupportedChain
	}

	data, err := im.abi.Pack("statusOf", refToHash(ref))
	if err != nil {
		return nil, err
	}
	res, err := client.CallContract(c, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		c.WithField("err", err).Warn("client.CallContract failed")
		return nil, err
	}
	unpacked, err := im.abi.Unpack("statusOf", res)
	if err != nil {
		return nil, err
	}
	status, ok := unpacked[0].(uint8)
	if !ok {
		return nil, errors.New("unexpected statusOf return type")
	}

	switch status {
	case chainStatusConfirmed:
		return &ledger.SubmitStatus{State: ledger.WriteStatusConfirmed}, nil
	case chainStatusFailed:
		return &ledger.SubmitStatus{State: ledger.WriteStatusFailed, Reason: "rejected by contract"}, nil
	default:
		return &ledger.SubmitStatus{State: ledger.WriteStatusPending}, nil
	}
}

package ledger

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/ledger"
)

type fakeEthClient struct {
	sentTxs []*types.Transaction

	receipt    *types.Receipt
	receiptErr error

	head uint64

	callResult []byte
	callErr    error

	sendErr error
}

func (f *fakeEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1000000000), nil
}

func (f *fakeEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 210000, nil
}

func (f *fakeEthClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTxs = append(f.sentTxs, tx)
	return nil
}

func (f *fakeEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return f.receipt, nil
}

func (f *fakeEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return f.callResult, f.callErr
}

type ethSuite struct {
	suite.Suite

	client *fakeEthClient
	im     *ethImpl
}

func TestEthSuite(t *testing.T) {
	suite.Run(t, new(ethSuite))
}

func (s *ethSuite) SetupTest() {
	parsed, err := abi.JSON(strings.NewReader(marketplaceAbiJson))
	s.Require().NoError(err)

	key, err := crypto.GenerateKey()
	s.Require().NoError(err)

	s.client = &fakeEthClient{}
	s.im = &ethImpl{
		clients:       map[domain.ChainId]ethClient{1: s.client},
		contracts:     map[domain.ChainId]common.Address{1: common.HexToAddress("0x00000000000000000000000000000000000000aa")},
		abi:           parsed,
		key:           key,
		sender:        crypto.PubkeyToAddress(key.PublicKey),
		confirmations: 3,
		met:           metrics.NewNop(),
		sent:          map[ledger.Ref]sentTx{},
	}
}

func purchaseIntent() *ledger.Intent {
	return &ledger.Intent{
		Type:            ledger.IntentPurchase,
		ChainId:         1,
		ContractAddress: "0x00000000000000000000000000000000000000bb",
		TokenId:         "42",
		From:            "0x00000000000000000000000000000000000000c1",
		To:              "0x00000000000000000000000000000000000000c2",
		Price:           "1.5",
		Currency:        "0x0000000000000000000000000000000000000000",
		ListingId:       "listing-1",
	}
}

func (s *ethSuite) TestSubmitSignsAndSends() {
	err := s.im.Submit(ctx.Background(), purchaseIntent(), "ref-1")
	s.Require().NoError(err)
	s.Require().Len(s.client.sentTxs, 1)

	tx := s.client.sentTxs[0]
	s.Equal(uint64(7), tx.Nonce())
	s.Equal(s.im.abi.Methods["purchase"].ID, tx.Data()[:4])
}

func (s *ethSuite) TestSubmitIsIdempotentPerRef() {
	s.Require().NoError(s.im.Submit(ctx.Background(), purchaseIntent(), "ref-1"))
	s.Require().NoError(s.im.Submit(ctx.Background(), purchaseIntent(), "ref-1"))
	s.Len(s.client.sentTxs, 1)
}

func (s *ethSuite) TestSubmitRejectsUnknownChain() {
	intent := purchaseIntent()
	intent.ChainId = 5
	s.Equal(ErrUnsupportedChain, s.im.Submit(ctx.Background(), intent, "ref-1"))
}

func (s *ethSuite) TestPackIntentSelectsMethodPerIntent() {
	mint := &ledger.Intent{
		Type:     ledger.IntentMint,
		ChainId:  1,
		TokenId:  "42",
		To:       "0x00000000000000000000000000000000000000c2",
		TokenUri: "ipfs://Qm123",
	}
	data, err := s.im.packIntent(mint, "ref-1")
	s.Require().NoError(err)
	s.Equal(s.im.abi.Methods["mint"].ID, data[:4])

	settlement := purchaseIntent()
	settlement.Type = ledger.IntentAuctionSettlement
	data, err = s.im.packIntent(settlement, "ref-2")
	s.Require().NoError(err)
	s.Equal(s.im.abi.Methods["settle"].ID, data[:4])

	unknown := purchaseIntent()
	unknown.Type = "burn"
	_, err = s.im.packIntent(unknown, "ref-3")
	s.Equal(ErrUnknownIntent, err)
}

func (s *ethSuite) TestPriceToWei() {
	wei, err := priceToWei("1.5")
	s.Require().NoError(err)
	s.Equal("1500000000000000000", wei.String())

	wei, err = priceToWei("")
	s.Require().NoError(err)
	s.Equal("0", wei.String())

	_, err = priceToWei("not-a-number")
	s.Error(err)
}

func (s *ethSuite) TestPollStatusPendingBeforeReceipt() {
	s.Require().NoError(s.im.Submit(ctx.Background(), purchaseIntent(), "ref-1"))
	s.client.receiptErr = ethereum.NotFound

	status, err := s.im.PollStatus(ctx.Background(), "ref-1")
	s.Require().NoError(err)
	s.Equal(ledger.WriteStatusPending, status.State)
}

func (s *ethSuite) TestPollStatusWaitsForConfirmations() {
	s.Require().NoError(s.im.Submit(ctx.Background(), purchaseIntent(), "ref-1"))
	s.client.receipt = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
	}

	s.client.head = 101
	status, err := s.im.PollStatus(ctx.Background(), "ref-1")
	s.Require().NoError(err)
	s.Equal(ledger.WriteStatusPending, status.State)

	s.client.head = 103
	status, err = s.im.PollStatus(ctx.Background(), "ref-1")
	s.Require().NoError(err)
	s.Equal(ledger.WriteStatusConfirmed, status.State)
	s.NotEmpty(status.TxHash)
}

func (s *ethSuite) TestPollStatusReportsRevertedTx() {
	s.Require().NoError(s.im.Submit(ctx.Background(), purchaseIntent(), "ref-1"))
	s.client.receipt = &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		BlockNumber: big.NewInt(100),
	}

	status, err := s.im.PollStatus(ctx.Background(), "ref-1")
	s.Require().NoError(err)
	s.Equal(ledger.WriteStatusFailed, status.State)
	s.Equal("transaction reverted", status.Reason)
}

func (s *ethSuite) TestPollStatusFallsBackToContractAfterRestart() {
	packed, err := s.im.abi.Methods["statusOf"].Outputs.Pack(uint8(chainStatusConfirmed))
	s.Require().NoError(err)
	s.client.callResult = packed

	// no Submit happened in this process, the ref is unknown locally
	status, err := s.im.PollStatus(ctx.Background(), "ref-after-restart")
	s.Require().NoError(err)
	s.Equal(ledger.WriteStatusConfirmed, status.State)
}

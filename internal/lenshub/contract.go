// Package lenshub submits signed meta-transactions to the LensHub contract.
package lenshub

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const defaultGasHeadroomPct = 20

// Backend is the subset of ethclient.Client used to build and send
// transactions.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TxSigner signs transactions for the sending account.
type TxSigner interface {
	From() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type Options struct {
	Address        common.Address
	ChainID        int64
	GasHeadroomPct int
	// DryRun signs transactions but never broadcasts them.
	DryRun         bool
	Logger         *slog.Logger
}

type Contract struct {
	backend  Backend
	signer   TxSigner
	address  common.Address
	abi      abi.ABI
	chainID  *big.Int
	headroom int
	dryRun   bool
	logger   *slog.Logger

	chainMu      sync.Mutex
	chainChecked bool
	chainErr     error
}

func New(backend Backend, signer TxSigner, opts Options) (*Contract, error) {
	if backend == nil || signer == nil {
		return nil, fmt.Errorf("%w: backend and signer are required", ErrInvalidArgument)
	}
	if opts.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: contract address is required", ErrInvalidArgument)
	}
	if opts.ChainID <= 0 {
		return nil, fmt.Errorf("%w: chain id must be positive", ErrInvalidArgument)
	}
	parsed, err := abi.JSON(strings.NewReader(lensHubABI))
	if err != nil {
		return nil, err
	}
	headroom := opts.GasHeadroomPct
	if headroom <= 0 {
		headroom = defaultGasHeadroomPct
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Contract{
		backend:  backend,
		signer:   signer,
		address:  opts.Address,
		abi:      parsed,
		chainID:  big.NewInt(opts.ChainID),
		headroom: headroom,
		dryRun:   opts.DryRun,
		logger:   logger,
	}, nil
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) SetDispatcherWithSig(ctx context.Context, data SetDispatcherWithSigData) (common.Hash, error) {
	if data.ProfileID == nil || data.Sig.Deadline == nil {
		return common.Hash{}, fmt.Errorf("%w: profile id and deadline are required", ErrInvalidArgument)
	}
	return c.transact(ctx, "setDispatcherWithSig", data)
}

func (c *Contract) PostWithSig(ctx context.Context, data PostWithSigData) (common.Hash, error) {
	if data.ProfileID == nil || data.Sig.Deadline == nil {
		return common.Hash{}, fmt.Errorf("%w: profile id and deadline are required", ErrInvalidArgument)
	}
	if data.CollectModuleInitData == nil {
		data.CollectModuleInitData = []byte{}
	}
	if data.ReferenceModuleInitData == nil {
		data.ReferenceModuleInitData = []byte{}
	}
	return c.transact(ctx, "postWithSig", data)
}

func (c *Contract) checkChain(ctx context.Context) error {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	if c.chainChecked {
		return c.chainErr
	}
	remote, err := c.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("lenshub: chain id: %w", err)
	}
	c.chainChecked = true
	if remote.Cmp(c.chainID) != 0 {
		c.chainErr = fmt.Errorf("%w: configured %s, node reports %s", ErrChainMismatch, c.chainID, remote)
	}
	return c.chainErr
}

func (c *Contract) transact(ctx context.Context, method string, args any) (common.Hash, error) {
	if err := c.checkChain(ctx); err != nil {
		return common.Hash{}, err
	}
	input, err := c.abi.Pack(method, args)
	if err != nil {
		return common.Hash{}, fmt.Errorf("lenshub: pack %s: %w", method, err)
	}
	from := c.signer.From()
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("lenshub: nonce: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &c.address, Data: input})
	if err != nil {
		return common.Hash{}, fmt.Errorf("lenshub: estimate gas for %s: %w", method, err)
	}
	gas += gas * uint64(c.headroom) / 100

	tx, err := c.buildTx(ctx, nonce, gas, input)
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := c.signer.SignTx(ctx, tx, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("lenshub: sign %s: %w", method, err)
	}
	if c.dryRun {
		c.logger.Warn("dry run: lenshub transaction not sent", "method", method, "tx_hash", signed.Hash().Hex(), "nonce", nonce, "gas", gas)
		return signed.Hash(), nil
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("lenshub: send %s: %w", method, err)
	}
	c.logger.Info("lenshub transaction sent", "method", method, "tx_hash", signed.Hash().Hex(), "nonce", nonce, "gas", gas)
	return signed.Hash(), nil
}

func (c *Contract) buildTx(ctx context.Context, nonce, gas uint64, input []byte) (*types.Transaction, error) {
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("lenshub: latest header: %w", err)
	}
	if head.BaseFee == nil {
		price, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("lenshub: gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &c.address,
			Gas:      gas,
			GasPrice: price,
			Data:     input,
		}), nil
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("lenshub: gas tip: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		To:        &c.address,
		Gas:       gas,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Data:      input,
	}), nil
}

// Package ledger executes escrow transfers as ERC20 token movements on an
// EVM chain.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"split-escrow/config"
	"split-escrow/internal/core/ports"
	"split-escrow/pkg/money"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedCurrency = errors.New("ledger: unsupported currency")
	ErrInvalidAddress      = errors.New("ledger: invalid address")
	ErrInvalidSecret       = errors.New("ledger: invalid signing secret")
	ErrSignerMismatch      = errors.New("ledger: signing secret does not control the source address")
	ErrNoOperator          = errors.New("ledger: no operator key configured for participant transfers")
	ErrNoTransferLog       = errors.New("ledger: transaction carries no token transfer")
)

// TransferError wraps a failed step of a transfer with its tx hash, if any.
type TransferError struct {
	Op     string
	TxHash string
	Err    error
}

func (e *TransferError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("ledger: %s failed (tx: %s): %v", e.Op, e.TxHash, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// EthClient is the subset of ethclient.Client the gateway uses.
type EthClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	Close()
}

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

// DefaultGasLimit is used when gas estimation fails.
const DefaultGasLimit = uint64(100000)

// Option configures the gateway.
type Option func(*Gateway)

// WithClient sets a custom client.
func WithClient(client EthClient) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// Gateway implements ports.LedgerGateway over a single ERC20 token.
type Gateway struct {
	client   EthClient
	chainID  *big.Int
	token    common.Address
	currency string
	operator *ecdsa.PrivateKey
	tokenABI abi.ABI
	log      zerolog.Logger
}

var _ ports.LedgerGateway = (*Gateway)(nil)

// NewGateway parses the token ABI and dials the RPC endpoint unless a client
// was supplied.
func NewGateway(cfg config.LedgerConfig, log zerolog.Logger, opts ...Option) (*Gateway, error) {
	if !common.IsHexAddress(cfg.TokenContract) {
		return nil, fmt.Errorf("%w: token contract %q", ErrInvalidAddress, cfg.TokenContract)
	}
	if cfg.ChainID == 0 {
		return nil, errors.New("ledger: chain id required")
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	g := &Gateway{
		chainID:  big.NewInt(cfg.ChainID),
		token:    common.HexToAddress(cfg.TokenContract),
		currency: strings.ToUpper(cfg.Currency),
		tokenABI: parsed,
		log:      log,
	}

	if cfg.OperatorKey != "" {
		g.operator, err = parseKey(cfg.OperatorKey)
		if err != nil {
			return nil, fmt.Errorf("operator key: %w", err)
		}
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		client, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial ledger rpc: %w", err)
		}
		g.client = client
	}

	return g, nil
}

// Transfer moves req.Amount of the token. With a signer secret the source
// signs a plain transfer; without one the operator pulls the funds with
// transferFrom against the source's allowance.
func (g *Gateway) Transfer(ctx context.Context, req ports.TransferRequest) (string, error) {
	if err := g.checkCurrency(req.Currency); err != nil {
		return "", err
	}
	if !common.IsHexAddress(req.From) || !common.IsHexAddress(req.To) {
		return "", ErrInvalidAddress
	}
	amount := money.ToUnits(req.Amount)
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("ledger: transfer amount must be positive, got %s", req.Amount)
	}
	from := common.HexToAddress(req.From)
	to := common.HexToAddress(req.To)

	var (
		signer *ecdsa.PrivateKey
		data   []byte
		err    error
	)
	if req.SignerSecret != "" {
		signer, err = parseKey(req.SignerSecret)
		if err != nil {
			return "", err
		}
		if crypto.PubkeyToAddress(signer.PublicKey) != from {
			return "", ErrSignerMismatch
		}
		data, err = g.tokenABI.Pack("transfer", to, amount)
	} else {
		if g.operator == nil {
			return "", ErrNoOperator
		}
		signer = g.operator
		data, err = g.tokenABI.Pack("transferFrom", from, to, amount)
	}
	if err != nil {
		return "", &TransferError{Op: "pack", Err: err}
	}

	hash, err := g.send(ctx, signer, data)
	if err != nil {
		return "", err
	}

	g.log.Info().
		Str("tx_ref", hash).
		Str("from", from.Hex()).
		Str("to", to.Hex()).
		Str("amount", req.Amount.String()).
		Str("memo", req.Memo).
		Msg("ledger transfer submitted")
	return hash, nil
}

func (g *Gateway) send(ctx context.Context, key *ecdsa.PrivateKey, data []byte) (string, error) {
	sender := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := g.client.PendingNonceAt(ctx, sender)
	if err != nil {
		return "", &TransferError{Op: "nonce", Err: err}
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", &TransferError{Op: "gas_price", Err: err}
	}

	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  sender,
		To:    &g.token,
		Value: big.NewInt(0),
		Data:  data,
	})
	if err != nil {
		g.log.Debug().Err(err).Msg("gas estimation failed, using default limit")
		gasLimit = DefaultGasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &g.token,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), key)
	if err != nil {
		return "", &TransferError{Op: "sign", Err: err}
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return "", &TransferError{Op: "send", TxHash: signed.Hash().Hex(), Err: err}
	}
	return signed.Hash().Hex(), nil
}

// GetBalance returns the token balance of address.
func (g *Gateway) GetBalance(ctx context.Context, address, currency string) (decimal.Decimal, error) {
	if err := g.checkCurrency(currency); err != nil {
		return decimal.Zero, err
	}
	if !common.IsHexAddress(address) {
		return decimal.Zero, ErrInvalidAddress
	}

	data, err := g.tokenABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("pack balanceOf: %w", err)
	}

	result, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call balanceOf: %w", err)
	}

	return money.FromUnits(new(big.Int).SetBytes(result)), nil
}

// GetTransactionStatus maps the receipt to confirmed or failed. A missing
// receipt means the transaction is not mined yet.
func (g *Gateway) GetTransactionStatus(ctx context.Context, signature string) (ports.TxStatus, error) {
	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(signature))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return ports.TxStatusPending, nil
		}
		return "", fmt.Errorf("get receipt %s: %w", signature, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return ports.TxStatusFailed, nil
	}
	return ports.TxStatusConfirmed, nil
}

// GetTransfer decodes the first token Transfer event in a mined transaction.
func (g *Gateway) GetTransfer(ctx context.Context, signature string) (*ports.TransferDetails, error) {
	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(signature))
	if err != nil {
		return nil, fmt.Errorf("get receipt %s: %w", signature, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, &TransferError{Op: "decode", TxHash: signature, Err: errors.New("transaction reverted")}
	}

	transferSig := g.tokenABI.Events["Transfer"].ID
	for _, l := range receipt.Logs {
		if l.Address != g.token || len(l.Topics) < 3 || l.Topics[0] != transferSig {
			continue
		}
		return &ports.TransferDetails{
			From:     common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
			To:       common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
			Amount:   money.FromUnits(new(big.Int).SetBytes(l.Data)),
			Currency: g.currency,
		}, nil
	}
	return nil, ErrNoTransferLog
}

// Close releases the RPC connection.
func (g *Gateway) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *Gateway) checkCurrency(currency string) error {
	if g.currency != "" && !strings.EqualFold(currency, g.currency) {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	return nil
}

func parseKey(secret string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// Package solanarpc is the concrete core.ChainClient implementation used by
// cmd/arbitraged: every read and write goes over JSON-RPC to a Solana
// cluster via github.com/gagliardetto/solana-go's rpc.Client, with a
// primary endpoint plus an ordered list of backups failed over to on
// transport error.
package solanarpc

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"dexarb/core"
)

// tokenAccountAmountOffset is the byte offset of the little-endian u64
// amount field within a standard SPL token account (mint:32 owner:32
// amount:8 ...).
const tokenAccountAmountOffset = 64

// Client is a core.ChainClient backed by one or more JSON-RPC endpoints. A
// call that fails against the current endpoint, whether from a transport
// error or an application-level error (account not found, bad signature), is
// retried against each backup in order before the last failure is surfaced
// to the caller as a core.ClientError (see withFailover).
type Client struct {
	log       *logrus.Logger
	endpoints []*rpc.Client
	names     []string
}

// New builds a Client from a primary RPC endpoint URL plus zero or more
// ordered backup URLs.
func New(log *logrus.Logger, primary string, backups []string) *Client {
	if log == nil {
		log = logrus.New()
	}
	endpoints := make([]*rpc.Client, 0, 1+len(backups))
	names := make([]string, 0, 1+len(backups))
	endpoints = append(endpoints, rpc.New(primary))
	names = append(names, primary)
	for _, b := range backups {
		endpoints = append(endpoints, rpc.New(b))
		names = append(names, b)
	}
	return &Client{log: log, endpoints: endpoints, names: names}
}

// withFailover runs op against each configured endpoint in order, stopping
// at the first that succeeds. Every endpoint is tried, in order, before the
// last error seen is wrapped in a core.ClientError and returned; a single
// endpoint's well-formed error response is indistinguishable here from a
// dropped connection, so both are treated as a reason to try the next
// backup.
func (c *Client) withFailover(op string, fn func(*rpc.Client) error) error {
	var lastErr error
	for i, ep := range c.endpoints {
		err := fn(ep)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < len(c.endpoints)-1 {
			c.log.WithFields(logrus.Fields{
				"op":       op,
				"endpoint": c.names[i],
				"err":      err,
			}).Warn("solanarpc: endpoint failed, trying next")
		}
	}
	return &core.ClientError{Op: op, Err: lastErr}
}

func (c *Client) GetAccount(ctx context.Context, addr core.PoolAddress) (core.Account, error) {
	var out core.Account
	err := c.withFailover("GetAccount", func(ep *rpc.Client) error {
		res, err := ep.GetAccountInfoWithOpts(ctx, solana.PublicKey(addr), &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			return fmt.Errorf("solanarpc: account %s not found", addr)
		}
		out = core.Account{
			Owner:    core.ProgramId(res.Value.Owner),
			Data:     res.Value.Data.GetBinary(),
			Lamports: res.Value.Lamports,
		}
		return nil
	})
	return out, err
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, addr core.PoolAddress) (uint64, error) {
	acct, err := c.GetAccount(ctx, addr)
	if err != nil {
		return 0, err
	}
	if len(acct.Data) < tokenAccountAmountOffset+8 {
		return 0, &core.ClientError{Op: "GetTokenAccountBalance", Err: fmt.Errorf("account %s too short: %d bytes", addr, len(acct.Data))}
	}
	return binary.LittleEndian.Uint64(acct.Data[tokenAccountAmountOffset : tokenAccountAmountOffset+8]), nil
}

func (c *Client) GetTokenSupply(ctx context.Context, mint core.TokenId) (uint64, error) {
	var out uint64
	err := c.withFailover("GetTokenSupply", func(ep *rpc.Client) error {
		res, err := ep.GetTokenSupply(ctx, solana.PublicKey(mint), rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			return fmt.Errorf("solanarpc: token supply for %s not found", mint)
		}
		amount, parseErr := parseUint64(res.Value.Amount)
		if parseErr != nil {
			return parseErr
		}
		out = amount
		return nil
	})
	return out, err
}

func (c *Client) GetRecentBlockId(ctx context.Context) (core.BlockId, error) {
	var out core.BlockId
	err := c.withFailover("GetRecentBlockId", func(ep *rpc.Client) error {
		res, err := ep.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			return fmt.Errorf("solanarpc: no recent blockhash")
		}
		out = core.BlockId(res.Value.Blockhash)
		return nil
	})
	return out, err
}

func (c *Client) SubmitSigned(ctx context.Context, tx core.SignedTransaction) (core.Signature, error) {
	var out core.Signature
	decoded, err := solana.TransactionFromBytes(tx.Raw)
	if err != nil {
		return out, &core.ClientError{Op: "SubmitSigned", Err: err}
	}
	err = c.withFailover("SubmitSigned", func(ep *rpc.Client) error {
		sig, err := ep.SendTransactionWithOpts(ctx, decoded, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		out = core.Signature(sig)
		return nil
	})
	return out, err
}

func (c *Client) AccountExists(ctx context.Context, addr core.PoolAddress) (bool, error) {
	var found bool
	err := c.withFailover("AccountExists", func(ep *rpc.Client) error {
		res, err := ep.GetAccountInfoWithOpts(ctx, solana.PublicKey(addr), &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		found = res != nil && res.Value != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func parseUint64(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("solanarpc: malformed amount %q: %w", s, err)
	}
	return v, nil
}

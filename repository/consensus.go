package repository

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	cmtrpctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
)

// ConsensusPayload represents data that will be sent to consensus
type ConsensusPayload interface{}

// ConsensusResult contains the result of a consensus operation
type ConsensusResult struct {
	TxHash      string `json:"tx_hash"`
	BlockHeight int64  `json:"block_height"`
	Code        uint32 `json:"code"`
}

// RunConsensus handles submitting data to the blockchain and waiting for consensus
func (r *Repository) RunConsensus(ctx context.Context, payload ConsensusPayload) (*ConsensusResult, *RepositoryError) {
	if r.rpcClient == nil {
		return nil, &RepositoryError{
			Code:    "NOT_CONFIGURED",
			Message: "No RPC client configured",
			Detail:  "consensus submission requires a CometBFT RPC client",
		}
	}

	// Serialize the payload
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &RepositoryError{
			Code:    "SERIALIZATION_ERROR",
			Message: "Failed to serialize consensus payload",
			Detail:  err.Error(),
		}
	}

	// Create consensus transaction
	consensusTx := cmttypes.Tx(payloadBytes)

	// Use a channel to detect both context deadline and RPC completion
	done := make(chan struct {
		result *cmtrpctypes.ResultBroadcastTxCommit
		err    error
	}, 1)

	go func() {
		result, err := r.rpcClient.BroadcastTxCommit(ctx, consensusTx)
		done <- struct {
			result *cmtrpctypes.ResultBroadcastTxCommit
			err    error
		}{result, err}
	}()

	// Wait for either the operation to complete or context to be canceled
	select {
	case <-ctx.Done():
		return nil, &RepositoryError{
			Code:    "CONSENSUS_TIMEOUT",
			Message: "Consensus operation timed out",
			Detail:  ctx.Err().Error(),
		}
	case result := <-done:
		if result.err != nil {
			return nil, &RepositoryError{
				Code:    "CONSENSUS_ERROR",
				Message: "Failed to commit to blockchain",
				Detail:  result.err.Error(),
			}
		}

		// Check for errors in the response
		if result.result.CheckTx.Code != 0 {
			return nil, &RepositoryError{
				Code:    "CONSENSUS_ERROR",
				Message: "Blockchain rejected transaction",
				Detail:  fmt.Sprintf("CheckTx code: %d", result.result.CheckTx.Code),
			}
		}

		// Return success result
		return &ConsensusResult{
			TxHash:      hex.EncodeToString(result.result.Hash),
			BlockHeight: result.result.Height,
			Code:        result.result.CheckTx.Code,
		}, nil
	}
}

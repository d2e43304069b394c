package blockrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chaincore/blockrepo/codec"
)

func TestGetTransactionByIdGenesisGatedByTxIndex(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	genesisTx := repo.net.GenesisBlock.Transactions()[0]

	_, found, err := repo.GetTransactionById(ctx, genesisTx.Hash())
	require.NoError(t, err)
	require.False(t, found, "genesis tx lookups are gated by TxIndex just like any other id")

	_, found, err = repo.GetBlockIdByTransactionId(ctx, genesisTx.Hash())
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.SetTxIndex(ctx, true))

	got, found, err := repo.GetTransactionById(ctx, genesisTx.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, genesisTx.Hash(), got.Hash())

	gh, found, err := repo.GetBlockIdByTransactionId(ctx, genesisTx.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, repo.net.GenesisHash, gh)
}

func TestGetTransactionByIdRequiresTxIndex(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx1 := fakeTx{hash: hashFromByte(0x40, 0)}
	b1 := fakeBlock{hash: hashFromByte(0x01, 0), txs: []codec.Transaction{tx1}}
	mustPutBlocks(t, repo, 1, b1)

	_, found, err := repo.GetTransactionById(ctx, tx1.hash)
	require.NoError(t, err)
	require.False(t, found, "tx lookups must fail closed when TxIndex is disabled")

	require.NoError(t, repo.SetTxIndex(ctx, true))
	require.NoError(t, repo.ReIndex(ctx))

	got, found, err := repo.GetTransactionById(ctx, tx1.hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, tx1.hash, got.Hash())
}

func TestGetBlockIdByTransactionId(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SetTxIndex(ctx, true))

	tx1 := fakeTx{hash: hashFromByte(0x41, 0)}
	b1 := fakeBlock{hash: hashFromByte(0x01, 0), txs: []codec.Transaction{tx1}}
	mustPutBlocks(t, repo, 1, b1)

	blockHash, found, err := repo.GetBlockIdByTransactionId(ctx, tx1.hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, b1.hash, blockHash)

	genesisTx := repo.net.GenesisBlock.Transactions()[0]
	gh, found, err := repo.GetBlockIdByTransactionId(ctx, genesisTx.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, repo.net.GenesisHash, gh)
}

func TestGetTransactionsByIdsIsAllOrNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SetTxIndex(ctx, true))

	tx1 := fakeTx{hash: hashFromByte(0x42, 0)}
	tx2 := fakeTx{hash: hashFromByte(0x43, 0)}
	b1 := fakeBlock{hash: hashFromByte(0x01, 0), txs: []codec.Transaction{tx1, tx2}}
	mustPutBlocks(t, repo, 1, b1)

	genesisTx := repo.net.GenesisBlock.Transactions()[0]

	got, err := repo.GetTransactionsByIds(ctx, []codec.Hash{tx1.hash, genesisTx.Hash(), tx2.hash}, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, tx1.hash, got[0].Hash())
	require.Equal(t, genesisTx.Hash(), got[1].Hash())
	require.Equal(t, tx2.hash, got[2].Hash())

	missing := hashFromByte(0x99, 0)
	got, err = repo.GetTransactionsByIds(ctx, []codec.Hash{tx1.hash, missing}, nil)
	require.NoError(t, err)
	require.Nil(t, got, "a single unresolved id must nil the entire batch")

	// S6: a repeated id is resolved from the first lookup, but one
	// missing id anywhere in the batch still nils the whole result.
	got, err = repo.GetTransactionsByIds(ctx, []codec.Hash{tx1.hash, tx1.hash, missing}, nil)
	require.NoError(t, err)
	require.Nil(t, got, "a duplicate resolved id must not mask a missing id elsewhere in the batch")

	got, err = repo.GetTransactionsByIds(ctx, []codec.Hash{tx1.hash, tx1.hash, tx2.hash}, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, tx1.hash, got[0].Hash())
	require.Equal(t, tx1.hash, got[1].Hash())
	require.Equal(t, tx2.hash, got[2].Hash())
}

func TestGetTransactionsByIdsHonorsAbort(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SetTxIndex(ctx, true))

	abort := make(chan struct{})
	close(abort)

	_, err := repo.GetTransactionsByIds(ctx, []codec.Hash{hashFromByte(0x01, 0)}, abort)
	require.Error(t, err)
	var repoErr RepoError
	require.ErrorAs(t, err, &repoErr)
	require.Equal(t, ErrCancelled, repoErr.Code)
}

func TestSetTxIndexDoesNotTriggerIndexing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx1 := fakeTx{hash: hashFromByte(0x44, 0)}
	b1 := fakeBlock{hash: hashFromByte(0x01, 0), txs: []codec.Transaction{tx1}}
	mustPutBlocks(t, repo, 1, b1)

	require.NoError(t, repo.SetTxIndex(ctx, true))

	_, found, err := repo.GetTransactionById(ctx, tx1.hash)
	require.NoError(t, err)
	require.False(t, found, "SetTxIndex alone must not backfill the index; ReIndex does that")
}

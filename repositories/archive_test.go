package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"huddle/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Archive_StoreAndFetch(t *testing.T) {
	req := require.New(t)
	repository := NewArchiveRepository(openTestDB(t), slog.Default())

	channel := domain.ChannelID(1)
	at := time.Now().Unix()
	archived := []ArchivedMessage{
		{ID: 3, Channel: channel, Sender: 1, Body: "first", At: at},
		{ID: 7, Channel: channel, Sender: 2, Body: "second", At: at + 60},
		{ID: 12, Channel: channel, Sender: 1, Body: "third", At: at + 120},
	}
	for _, m := range archived {
		req.NoError(repository.StoreMessage(m))
	}
	// A neighbour channel must not leak into the prefix scan.
	req.NoError(repository.StoreMessage(ArchivedMessage{ID: 5, Channel: 10, Sender: 9, Body: "elsewhere", At: at}))

	fetched, err := repository.Messages(channel)
	req.NoError(err)
	req.Equal(archived, fetched)
}

func Test_Archive_DeleteMessage(t *testing.T) {
	req := require.New(t)
	repository := NewArchiveRepository(openTestDB(t), slog.Default())

	channel := domain.ChannelID(2)
	req.NoError(repository.StoreMessage(ArchivedMessage{ID: 1, Channel: channel, Sender: 1, Body: "keep", At: 100}))
	req.NoError(repository.StoreMessage(ArchivedMessage{ID: 2, Channel: channel, Sender: 1, Body: "drop", At: 101}))

	req.NoError(repository.DeleteMessage(channel, 2))

	fetched, err := repository.Messages(channel)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("keep", fetched[0].Body)
}

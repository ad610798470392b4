// Package repositories holds the persistence adapters. The archive is a
// best-effort operability mirror of posted messages; the in-memory
// ledger stays authoritative and never reads it back.
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"huddle/domain"
)

type IArchiveRepository interface {
	StoreMessage(m ArchivedMessage) error
	DeleteMessage(channel domain.ChannelID, id domain.MessageID) error
	Messages(channel domain.ChannelID) ([]ArchivedMessage, error)
}

type ArchivedMessage struct {
	ID      domain.MessageID `json:"id"`
	Channel domain.ChannelID `json:"channel"`
	Sender  domain.UserID    `json:"sender"`
	Body    string           `json:"body"`
	At      int64            `json:"at"`
}

type ArchiveRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewArchiveRepository(db *badger.DB, log *slog.Logger) ArchiveRepository {
	return ArchiveRepository{db: db, log: log}
}

// Keys are "msg:{channel}:{id zero-padded to 12 digits}" so a prefix
// scan per channel comes back in identifier order lexicographically.
func key(channel domain.ChannelID, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%d:%012d", channel, id))
}

func (r ArchiveRepository) StoreMessage(m ArchivedMessage) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(m.Channel, m.ID), bytes)
	})
}

func (r ArchiveRepository) DeleteMessage(channel domain.ChannelID, id domain.MessageID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(channel, id))
	})
}

// Messages retrieves the archived messages of a channel using a prefix
// scan. The padded identifier in the key keeps them id-ordered.
func (r ArchiveRepository) Messages(channel domain.ChannelID) ([]ArchivedMessage, error) {
	var out []ArchivedMessage
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", channel))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var m ArchivedMessage
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				out = append(out, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

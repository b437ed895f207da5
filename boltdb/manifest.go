// Package boltdb provides a tdk.Manifest stored in a bolt database next to the
// checkpoints it describes.
package boltdb

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/globi-tools/tdk"
	"github.com/pkg/errors"
)

var checkpointBucket = []byte("checkpoints")

var _ tdk.Manifest = &Manifest{}

// Manifest records checkpoints in registration order.
type Manifest struct {
	Db *bolt.DB
}

// NewManifest opens (or creates) the manifest database at filename.
func NewManifest(filename string) (m *Manifest, err error) {
	m = &Manifest{}
	m.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = m.Db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointBucket)
		return errors.Wrap(err, "creating checkpoints bucket")
	})
	if err != nil {
		m.Db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return m, nil
}

// Register implements tdk.Manifest.
func (m *Manifest) Register(rec tdk.CheckpointRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshalling checkpoint record")
	}
	return m.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "getting sequence")
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return errors.Wrap(b.Put(key, val), "inserting into checkpoints bucket")
	})
}

// Records implements tdk.Manifest. Records come back in registration order.
func (m *Manifest) Records() ([]tdk.CheckpointRecord, error) {
	ret := make([]tdk.CheckpointRecord, 0)
	err := m.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointBucket).ForEach(func(k, v []byte) error {
			var rec tdk.CheckpointRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decoding record %d", binary.BigEndian.Uint64(k))
			}
			ret = append(ret, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Close syncs and closes the database.
func (m *Manifest) Close() error {
	err := m.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return m.Db.Close()
}

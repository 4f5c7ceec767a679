/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a BoltDB-backed DataIO.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oakbot/oak/storage"

	bbolt "go.etcd.io/bbolt"
)

var bucketName = []byte("documents")

// Store is a DataIO over a single Bolt bucket: one key per document
// name, JSON values.
type Store struct {
	filename string
	db       *bbolt.DB
}

// NewStore makes a Store for the given file.  Call Open before use.
func NewStore(filename string) *Store {
	return &Store{
		filename: filename,
	}
}

// Open opens (creating if needed) the underlying database file.
func (s *Store) Open() error {
	opts := &bbolt.Options{
		Timeout: time.Second,
	}

	db, err := bbolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db

	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements storage.DataIO.
func (s *Store) Load(ctx context.Context, name string, v interface{}) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return storage.ErrNotFound
		}
		js := b.Get([]byte(name))
		if js == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(js, v)
	})
}

// Save implements storage.DataIO.
func (s *Store) Save(ctx context.Context, name string, v interface{}) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(name), js)
	})
}

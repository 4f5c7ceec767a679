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

package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-memory DataIO.  Not glamorous or efficient; meant
// for tests and ephemeral bots.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemory makes an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]byte),
	}
}

// Load implements DataIO.
func (m *Memory) Load(ctx context.Context, name string, v interface{}) error {
	m.mu.Lock()
	js, have := m.docs[name]
	m.mu.Unlock()
	if !have {
		return ErrNotFound
	}
	return json.Unmarshal(js, v)
}

// Save implements DataIO.
func (m *Memory) Save(ctx context.Context, name string, v interface{}) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[name] = js
	m.mu.Unlock()
	return nil
}

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

// Package storage defines the DataIO document store used for
// interaction and permission persistence.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound occurs when a named document does not exist.
var ErrNotFound = errors.New("document not found")

// DataIO loads and saves named JSON-serializable documents.
//
// Implementations must be safe for concurrent use.
type DataIO interface {
	// Load unmarshals the named document into v.  Returns
	// ErrNotFound if the document has never been saved.
	Load(ctx context.Context, name string, v interface{}) error

	// Save marshals v and stores it under name, overwriting any
	// previous version.
	Save(ctx context.Context, name string, v interface{}) error
}

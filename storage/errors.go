// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import "errors"

// Sentinel errors shared by every backend. Backends wrap them with the
// failing key or query so callers can test with errors.Is.
var (
	// ErrNotFound is returned when a document, chunk or escalation id is unknown.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed is returned by a backend after Close.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for searches with nothing to look for.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed wraps encoder and decoder failures on stored records.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData is returned when a stored record ends early.
	ErrTruncatedData = errors.New("truncated data")
)

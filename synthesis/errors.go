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


package synthesis

import "errors"

var (
	// ErrSynthesisFailed is returned when the completion service fails or answers with nothing.
	ErrSynthesisFailed = errors.New("failed to generate a response, check configuration and retry")

	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrOutcomeRequired is returned when Synthesize is called without a search outcome.
	ErrOutcomeRequired = errors.New("search outcome required")

	// ErrInvalidTemperature is returned when the temperature is outside [0,2].
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 2")
)

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


// Package knowledge matches questions against a curated table of
// question/answer pairs maintained by the sales team.
//
// The table is a CSV file with question and answer columns. It is parsed
// once, lazily, on first use and kept for the life of the Matcher. A missing
// or unreadable table yields no matches rather than an error, so the search
// cascade simply moves on to the document corpus.
//
// Matches are search guidance: they ground the prompt but are not cited
// back to the user as sources.
package knowledge

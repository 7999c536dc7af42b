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


// Package synthesis turns retrieval outcomes into user-facing answers.
//
// A Synthesizer formats the evidence of a search.Found outcome into a
// grounding block, asks the completion service for an answer at a low
// temperature and post-processes the text:
//
//   - action items and follow-up tasks are pulled out by an Extractor
//     (RegexExtractor by default), capped at 5 and 3 respectively
//   - sources list the documents and web pages behind the answer;
//     curated reference answers are used for grounding but never cited
//   - reasoning tells the user how many documents were used and how
//     relevant the best one was
//
// With more than three evidence records the grounding block switches to
// narrow-down mode: names and links only, with an instruction to ask the
// user to narrow the question.
//
// A search.Empty outcome never reaches the completion service. The answer
// either asks for permission to search the web or reports that nothing was
// found anywhere, depending on whether a web search was attempted.
//
// Completion failures are fatal and returned as ErrSynthesisFailed; no
// partial answer is produced.
package synthesis

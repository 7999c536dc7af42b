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


package core

// Priority of an extracted action item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Category of an extracted action item.
type Category string

const (
	CategoryClientCommunication Category = "Client Communication"
	CategoryDocumentation       Category = "Documentation"
	CategoryInternalProcess     Category = "Internal Process"
	CategoryScheduling          Category = "Scheduling"
	CategoryGeneral             Category = "General"
)

// FollowupType classifies an extracted follow-up task.
type FollowupType string

const (
	FollowupCall     FollowupType = "call"
	FollowupEmail    FollowupType = "email"
	FollowupMeeting  FollowupType = "meeting"
	FollowupDocument FollowupType = "document"
	FollowupOther    FollowupType = "other"
)

// ActionItem is a task extracted from a generated answer.
type ActionItem struct {
	Task     string   `json:"task"`
	Priority Priority `json:"priority"`
	Assignee string   `json:"assignee,omitempty"`
	DueDate  string   `json:"dueDate,omitempty"`
	Category Category `json:"category"`
}

// FollowupTask is a follow-up extracted from a generated answer.
type FollowupTask struct {
	Task      string       `json:"task"`
	Timeframe string       `json:"timeframe"`
	Type      FollowupType `json:"type"`
}

// Source is a user-facing citation.
type Source struct {
	Name           string  `json:"name"`
	URL            string  `json:"url"`
	RelevanceScore float32 `json:"relevanceScore"`
	Snippet        string  `json:"snippet"`
	Type           string  `json:"type"`
}

// Answer is the final response returned to the caller.
type Answer struct {
	Message                       string         `json:"message"`
	Sources                       []Source       `json:"sources,omitempty"`
	Reasoning                     string         `json:"reasoning,omitempty"`
	ActionItems                   []ActionItem   `json:"actionItems,omitempty"`
	FollowupTasks                 []FollowupTask `json:"followupTasks,omitempty"`
	NeedsExternalSearchPermission bool           `json:"needsExternalSearchPermission,omitempty"`
}

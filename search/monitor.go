package search

import "github.com/poiesic/merchantdesk/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(req Request)
	StageStarted(stage Stage)
	StageFinished(stage Stage, evidence []core.Evidence)
	AlternativeTried(query string, hits int)
	Escalated(query string, result core.WebResult, err error)
	Finish(outcome Outcome)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request)                              {}
func (n *noopMonitor) StageStarted(_ Stage)                         {}
func (n *noopMonitor) StageFinished(_ Stage, _ []core.Evidence)     {}
func (n *noopMonitor) AlternativeTried(_ string, _ int)             {}
func (n *noopMonitor) Escalated(_ string, _ core.WebResult, _ error) {}
func (n *noopMonitor) Finish(_ Outcome)                             {}

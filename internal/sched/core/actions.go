package core

import "hivetick.ai/internal/sched/task"

// ActionType tags the one token emitted per agent per tick. The token is
// opaque to this core beyond tag and target; the host's executor interprets
// it.
type ActionType string

const (
	ActionMoveToward ActionType = "MOVE_TOWARD"
	ActionPerform    ActionType = "PERFORM"
	ActionIdle       ActionType = "IDLE"
)

type Action struct {
	AgentID  string     `json:"agent_id"`
	Type     ActionType `json:"type"`
	TargetID string     `json:"target_id,omitempty"`
	Pos      *task.Pos  `json:"pos,omitempty"`
}

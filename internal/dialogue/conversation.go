package dialogue

import (
	"sync"

	"github.com/foxseedlab/taskbot/internal/tracker"
)

type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingProject
	StageAwaitingProjectConfirm
	StageAwaitingSummary
	StageAwaitingDescription
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAwaitingProject:
		return "awaiting_project"
	case StageAwaitingProjectConfirm:
		return "awaiting_project_confirm"
	case StageAwaitingSummary:
		return "awaiting_summary"
	case StageAwaitingDescription:
		return "awaiting_description"
	default:
		return "unknown"
	}
}

// previous is the stage "Back" returns to.
func (s Stage) previous() Stage {
	switch s {
	case StageAwaitingProjectConfirm, StageAwaitingSummary:
		return StageAwaitingProject
	case StageAwaitingDescription:
		return StageAwaitingProjectConfirm
	default:
		return StageIdle
	}
}

// Conversation is the dialogue progress of one room. It is held by value so
// a step can be computed on a copy and committed only when it succeeds.
type Conversation struct {
	RoomID      string
	Stage       Stage
	Project     *tracker.Project
	Summary     string
	Description string
}

func (c Conversation) reset() Conversation {
	return Conversation{RoomID: c.RoomID, Stage: StageIdle}
}

type conversationStore struct {
	mu    sync.Mutex
	rooms map[string]Conversation
}

func newConversationStore() *conversationStore {
	return &conversationStore{rooms: make(map[string]Conversation)}
}

func (s *conversationStore) get(roomID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rooms[roomID]
	if !ok {
		return Conversation{RoomID: roomID, Stage: StageIdle}
	}
	return c
}

func (s *conversationStore) put(c Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Stage == StageIdle {
		delete(s.rooms, c.RoomID)
		return
	}
	s.rooms[c.RoomID] = c
}

func (s *conversationStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

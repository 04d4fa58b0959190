package a2a

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned by TaskStore.Get for unknown ids.
var ErrTaskNotFound = errors.New("task not found")

// DefaultTaskRetention is how many answered tasks a TaskStore keeps.
const DefaultTaskRetention = 256

// NewTaskID returns a random task id.
func NewTaskID() string {
	return uuid.NewString()
}

// TaskStore keeps the most recent answered tasks so clients can fetch them
// again by id. The oldest task is evicted once the retention limit is hit.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	orderIDs []string
	limit    int
}

// NewTaskStore returns a TaskStore that retains up to limit tasks.
// A non-positive limit means DefaultTaskRetention.
func NewTaskStore(limit int) *TaskStore {
	if limit <= 0 {
		limit = DefaultTaskRetention
	}
	return &TaskStore{
		tasks: make(map[string]*Task),
		limit: limit,
	}
}

// Put stores a copy of task, replacing any task with the same id.
func (s *TaskStore) Put(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; !exists {
		s.orderIDs = append(s.orderIDs, task.ID)
	}
	s.tasks[task.ID] = deepCopyTask(&task)

	for len(s.orderIDs) > s.limit {
		delete(s.tasks, s.orderIDs[0])
		s.orderIDs = s.orderIDs[1:]
	}
}

// Get returns a deep copy of the task with the given id.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, ErrTaskNotFound)
	}
	return deepCopyTask(t), nil
}

// Len returns the number of retained tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orderIDs)
}

// deepCopyTask round-trips through JSON so the copy shares no slices.
func deepCopyTask(t *Task) *Task {
	b, err := json.Marshal(t)
	if err != nil {
		cp := *t
		return &cp
	}
	var out Task
	if err := json.Unmarshal(b, &out); err != nil {
		cp := *t
		return &cp
	}
	return &out
}

package state

import (
	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/progress"
)

// TaskSnapshot is a point-in-time copy of the task container.
type TaskSnapshot struct {
	Version      uint64                      `json:"version"`
	Tasks        []crawler.Task              `json:"tasks"`
	Total        int                         `json:"total"`
	Progress     map[string]crawler.Progress `json:"progress"`
	ActiveTaskID string                      `json:"activeTaskId,omitempty"`
	Loading      bool                        `json:"loading"`
	Error        string                      `json:"error,omitempty"`
}

// Task returns the task with the given id.
func (s TaskSnapshot) Task(id string) (crawler.Task, bool) {
	if i := indexTask(s.Tasks, id); i >= 0 {
		return s.Tasks[i], true
	}
	return crawler.Task{}, false
}

// ProgressOf returns the latest progress known for id, preferring the
// progress map over the task's embedded counters.
func (s TaskSnapshot) ProgressOf(id string) (crawler.Progress, bool) {
	if p, ok := s.Progress[id]; ok {
		return p, true
	}
	if t, ok := s.Task(id); ok {
		return t.Progress, true
	}
	return crawler.Progress{}, false
}

func copyTasks(s TaskSnapshot, version uint64) TaskSnapshot {
	s.Version = version
	s.Tasks = cloneTasks(s.Tasks)
	prog := make(map[string]crawler.Progress, len(s.Progress))
	for id, p := range s.Progress {
		prog[id] = p.Clone()
	}
	s.Progress = prog
	return s
}

// TaskStore holds the task list, the progress map and the focused task.
type TaskStore struct {
	c     *container[TaskSnapshot]
	loads fence
}

// NewTaskStore returns an empty store.
func NewTaskStore() *TaskStore {
	initial := TaskSnapshot{
		Tasks:    []crawler.Task{},
		Progress: map[string]crawler.Progress{},
	}
	return &TaskStore{c: newContainer(initial, copyTasks)}
}

// Snapshot returns a copy of the current state.
func (s *TaskStore) Snapshot() TaskSnapshot { return s.c.snapshot() }

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *TaskStore) Subscribe(fn func(TaskSnapshot)) func() {
	return s.c.subscribe(fn)
}

// SetTasks replaces the task list.
func (s *TaskStore) SetTasks(tasks []crawler.Task) {
	cp := cloneTasks(tasks)
	s.set(func(st *TaskSnapshot) { st.Tasks = cp })
}

// AddTask appends task to the list.
func (s *TaskStore) AddTask(task crawler.Task) {
	cp := task.Clone()
	s.set(func(st *TaskSnapshot) {
		st.Tasks = append(st.Tasks, cp)
		st.Total++
	})
}

// UpdateTask shallow-merges patch into the task with the given id. Unknown
// ids are ignored.
func (s *TaskStore) UpdateTask(id string, patch crawler.TaskPatch) {
	s.c.mutate(func(st *TaskSnapshot) bool {
		i := indexTask(st.Tasks, id)
		if i < 0 {
			return false
		}
		st.Tasks[i] = patch.Apply(st.Tasks[i])
		if patch.Progress != nil {
			st.Progress[id] = patch.Progress.Clone()
		}
		return true
	})
}

// RemoveTask deletes the task with the given id along with its progress
// entry. Unknown ids are ignored.
func (s *TaskStore) RemoveTask(id string) {
	s.c.mutate(func(st *TaskSnapshot) bool {
		i := indexTask(st.Tasks, id)
		if i < 0 {
			return false
		}
		st.Tasks = append(st.Tasks[:i:i], st.Tasks[i+1:]...)
		delete(st.Progress, id)
		if st.Total > 0 {
			st.Total--
		}
		if st.ActiveTaskID == id {
			st.ActiveTaskID = ""
		}
		return true
	})
}

// SetActiveTaskID focuses a task. An empty id clears the focus.
func (s *TaskStore) SetActiveTaskID(id string) {
	s.set(func(st *TaskSnapshot) { st.ActiveTaskID = id })
}

// UpdateTaskProgress replaces the progress of id wholesale.
func (s *TaskStore) UpdateTaskProgress(id string, p crawler.Progress) {
	s.set(func(st *TaskSnapshot) { setProgress(st, id, p) })
}

// AppendLog adds a log line to the task. Unknown ids are ignored.
func (s *TaskStore) AppendLog(id string, entry crawler.TaskLog) {
	s.c.mutate(func(st *TaskSnapshot) bool {
		i := indexTask(st.Tasks, id)
		if i < 0 {
			return false
		}
		st.Tasks[i].Logs = append(st.Tasks[i].Logs, entry)
		return true
	})
}

// SetLoading sets the loading flag.
func (s *TaskStore) SetLoading(loading bool) {
	s.set(func(st *TaskSnapshot) { st.Loading = loading })
}

// SetError stores msg; an empty msg clears the error.
func (s *TaskStore) SetError(msg string) {
	s.set(func(st *TaskSnapshot) { st.Error = msg })
}

// BeginLoad marks the store loading and returns the ticket the response must
// present to ApplyList or FailLoad.
func (s *TaskStore) BeginLoad() Ticket {
	t := s.loads.next()
	s.set(func(st *TaskSnapshot) {
		st.Loading = true
		st.Error = ""
	})
	return t
}

// ApplyList stores a loaded task page if t is still the newest ticket.
func (s *TaskStore) ApplyList(t Ticket, page crawler.Page[crawler.Task]) bool {
	items := cloneTasks(page.Items)
	return s.c.mutate(func(st *TaskSnapshot) bool {
		if !s.loads.current(t) {
			return false
		}
		st.Tasks = items
		st.Total = page.Total
		st.Loading = false
		return true
	})
}

// FailLoad records a failed load if t is still the newest ticket.
func (s *TaskStore) FailLoad(t Ticket, msg string) bool {
	return s.c.mutate(func(st *TaskSnapshot) bool {
		if !s.loads.current(t) {
			return false
		}
		st.Loading = false
		st.Error = msg
		return true
	})
}

// ApplyEvent merges a realtime event. Progress replaces the progress map
// entry and the task's counters, logs are appended, and status events patch
// status and timestamps. Once a task is terminal every further event for it
// is ignored. It reports whether the event changed the store.
func (s *TaskStore) ApplyEvent(evt progress.Event) bool {
	if evt.Validate() != nil {
		return false
	}
	return s.c.mutate(func(st *TaskSnapshot) bool {
		i := indexTask(st.Tasks, evt.TaskID)
		if i >= 0 && st.Tasks[i].Status.Terminal() {
			return false
		}
		switch evt.Type {
		case progress.TypeProgress:
			setProgress(st, evt.TaskID, *evt.Progress)
			return true
		case progress.TypeLog:
			if i < 0 {
				return false
			}
			st.Tasks[i].Logs = append(st.Tasks[i].Logs, *evt.Log)
			return true
		default:
			patch, ok := evt.Patch()
			if !ok || i < 0 {
				return false
			}
			task := patch.Apply(st.Tasks[i])
			if evt.ItemsCollected > 0 {
				p := task.Progress
				p.Current = evt.ItemsCollected
				if p.Total > 0 {
					p = p.Normalize()
				}
				task.Progress = p
				st.Progress[evt.TaskID] = p.Clone()
			}
			st.Tasks[i] = task
			return true
		}
	})
}

func (s *TaskStore) set(fn func(*TaskSnapshot)) {
	s.c.mutate(func(st *TaskSnapshot) bool {
		fn(st)
		return true
	})
}

func setProgress(st *TaskSnapshot, id string, p crawler.Progress) {
	st.Progress[id] = p.Clone()
	if i := indexTask(st.Tasks, id); i >= 0 {
		st.Tasks[i].Progress = p.Clone()
	}
}

func indexTask(tasks []crawler.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(in []crawler.Task) []crawler.Task {
	out := make([]crawler.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

package service

import (
	"context"
	"encoding/json"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// TaskService reads and manages crawl tasks.
type TaskService struct {
	client *transport.Client
}

// ListTasksParams filters GET /crawler/tasks. An empty Status lists all.
type ListTasksParams struct {
	Page     int
	PageSize int
	Status   crawler.TaskStatus
}

// List returns one page of tasks.
func (s *TaskService) List(ctx context.Context, p ListTasksParams) (crawler.Page[crawler.Task], error) {
	opts := append(pageOptions(p.Page, p.PageSize), transport.WithQuery("status", string(p.Status)))
	env, err := transport.Get[crawler.Page[crawler.Task]](ctx, s.client, "/crawler/tasks", opts...)
	return env.Data, err
}

// Get fetches one task.
func (s *TaskService) Get(ctx context.Context, taskID string) (crawler.Task, error) {
	id, err := segment("task id", taskID)
	if err != nil {
		return crawler.Task{}, err
	}
	env, err := transport.Get[crawler.Task](ctx, s.client, "/crawler/task/"+id)
	return env.Data, err
}

// Create registers a new task.
func (s *TaskService) Create(ctx context.Context, req crawler.CreateTaskRequest) (crawler.Task, error) {
	env, err := transport.Post[crawler.Task](ctx, s.client, "/crawler/tasks", req)
	return env.Data, err
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, taskID string) error {
	id, err := segment("task id", taskID)
	if err != nil {
		return err
	}
	_, err = transport.Delete[json.RawMessage](ctx, s.client, "/crawler/task/"+id)
	return err
}

// Progress fetches the latest progress of a task.
func (s *TaskService) Progress(ctx context.Context, taskID string) (crawler.Progress, error) {
	id, err := segment("task id", taskID)
	if err != nil {
		return crawler.Progress{}, err
	}
	env, err := transport.Get[crawler.Progress](ctx, s.client, "/crawler/progress/"+id)
	return env.Data, err
}

// Logs fetches a window of task log lines.
func (s *TaskService) Logs(ctx context.Context, taskID string, limit, offset int) ([]crawler.TaskLog, error) {
	id, err := segment("task id", taskID)
	if err != nil {
		return nil, err
	}
	env, err := transport.Get[[]crawler.TaskLog](ctx, s.client, "/crawler/task/"+id+"/logs",
		transport.WithQueryInt("limit", limit),
		transport.WithQueryInt("offset", offset),
	)
	return env.Data, err
}

// Statistics returns task counts by status.
func (s *TaskService) Statistics(ctx context.Context) (crawler.TaskStatistics, error) {
	env, err := transport.Get[crawler.TaskStatistics](ctx, s.client, "/crawler/tasks/statistics")
	return env.Data, err
}

// BatchDelete removes several tasks in one call.
func (s *TaskService) BatchDelete(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return ErrEmptyIDs
	}
	_, err := transport.Post[json.RawMessage](ctx, s.client, "/crawler/tasks/batch-delete",
		map[string][]string{"taskIds": taskIDs})
	return err
}

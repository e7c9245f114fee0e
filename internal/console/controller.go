// Package console implements the view-facing actions of the crawl console.
// Every action calls the domain services, merges the response into the state
// containers and pushes a user-visible notification into the UI container.
// Illegal task transitions and invalid drafts are refused before any request
// is built.
package console

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/download"
	"github.com/JakeFAU/crawler-console/internal/service"
	"github.com/JakeFAU/crawler-console/internal/state"
)

var (
	// ErrNothingSelected is returned by BatchDeleteResults when the selection
	// is empty. No request is sent.
	ErrNothingSelected = errors.New("no results selected")
	// ErrUnknownTask is returned by task actions for an id the task container
	// does not hold.
	ErrUnknownTask = errors.New("unknown task")
	// ErrNoSaver is returned by Export when no download target is configured.
	ErrNoSaver = errors.New("export target not configured")
)

// Notification texts shown to the operator.
const (
	msgStarted       = "crawl task started"
	msgStartFailed   = "failed to start crawl, check the configuration and retry"
	msgInvalidDraft  = "crawl configuration is incomplete"
	msgPaused        = "task paused"
	msgPauseFailed   = "failed to pause task"
	msgResumed       = "task resumed"
	msgResumeFailed  = "failed to resume task"
	msgCancelled     = "task cancelled"
	msgCancelFailed  = "failed to cancel task"
	msgDeleted       = "task deleted"
	msgDeleteFailed  = "failed to delete task"
	msgTasksFailed   = "failed to load tasks"
	msgTaskFailed    = "failed to load task"
	msgResultsFailed = "failed to load results"
	msgSelectFirst   = "select the results to delete first"
	msgBatchDeleted  = "results deleted"
	msgBatchFailed   = "failed to delete results"
	msgStatsFailed   = "failed to load statistics"
)

// DraftSaver persists the crawl draft once the backend has accepted it.
type DraftSaver interface {
	SaveCrawlerConfig(ctx context.Context, cfg crawler.Config) error
}

// Controller drives the state containers from operator actions.
type Controller struct {
	services *service.Services
	stores   *state.Stores
	saver    *download.Saver
	drafts   DraftSaver
	logger   *zap.Logger
}

// New builds a Controller. saver may be nil when exports are not needed.
func New(services *service.Services, stores *state.Stores, saver *download.Saver, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		services: services,
		stores:   stores,
		saver:    saver,
		logger:   logger.Named("console"),
	}
}

// Stores exposes the containers the controller writes to.
func (c *Controller) Stores() *state.Stores { return c.stores }

// SetDraftSaver makes StartCrawl save the draft after at least one task
// started.
func (c *Controller) SetDraftSaver(s DraftSaver) { c.drafts = s }

// StartCrawl validates the crawler draft and starts one task per selected
// platform. An invalid draft is recorded on the crawler container and nothing
// is sent. Tasks the backend accepts are added to the task container even
// when another platform fails.
func (c *Controller) StartCrawl(ctx context.Context) ([]crawler.Task, error) {
	draft := c.stores.Crawler.Draft()
	if err := draft.Validate(); err != nil {
		c.stores.Crawler.SetError(err.Error())
		c.stores.UI.AddNotification(state.NotifyError, msgInvalidDraft)
		return nil, err
	}

	c.stores.Crawler.SetError("")
	c.stores.Crawler.SetLoading(true)
	defer c.stores.Crawler.SetLoading(false)

	var (
		started []crawler.Task
		errs    []error
	)
	for _, platform := range draft.Platforms {
		task, err := c.services.Crawler.Start(ctx, startRequest(platform, draft))
		if err != nil {
			c.logger.Warn("start crawl failed", zap.String("platform", string(platform)), zap.Error(err))
			errs = append(errs, fmt.Errorf("start %s: %w", platform, err))
			continue
		}
		task = fillTask(task, platform, draft)
		c.stores.Tasks.AddTask(task)
		started = append(started, task)
		c.logger.Info("crawl started", zap.String("task_id", task.ID), zap.String("platform", string(platform)))
	}

	if len(started) > 0 {
		c.stores.Tasks.SetActiveTaskID(started[0].ID)
		c.stores.UI.AddNotification(state.NotifySuccess, msgStarted)
		if c.drafts != nil {
			if err := c.drafts.SaveCrawlerConfig(ctx, draft); err != nil {
				c.logger.Warn("save crawler config failed", zap.Error(err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.stores.Crawler.SetError(err.Error())
		c.stores.UI.AddNotification(state.NotifyError, msgStartFailed)
		return started, err
	}
	return started, nil
}

func startRequest(platform crawler.Platform, draft crawler.Config) crawler.StartRequest {
	req := crawler.StartRequest{
		Platform: platform,
		Type:     draft.CrawlerType,
		Config: crawler.StartConfig{
			Keyword:        draft.Keywords,
			Limit:          draft.Limit,
			Priority:       draft.Priority,
			EnableComments: draft.EnableComments,
			EnableProxy:    draft.EnableProxy,
		},
	}
	if draft.Filters != (crawler.FilterOptions{}) {
		f := draft.Filters.Clone()
		req.Config.Filters = &f
	}
	return req
}

// fillTask completes a freshly created task with the draft it came from when
// the backend echoes a partial record.
func fillTask(task crawler.Task, platform crawler.Platform, draft crawler.Config) crawler.Task {
	if task.Status == "" {
		task.Status = crawler.StatusPending
	}
	if task.Platform == "" {
		task.Platform = platform
	}
	if task.CrawlerType == "" {
		task.CrawlerType = draft.CrawlerType
	}
	if len(task.Config.Platforms) == 0 {
		task.Config = draft.Clone()
		task.Config.Platforms = []crawler.Platform{platform}
	}
	if task.Progress.Total == 0 && task.Progress.Current == 0 {
		task.Progress = crawler.NewProgress(0, draft.Limit)
	}
	return task
}

// Pause asks the backend to pause a running task.
func (c *Controller) Pause(ctx context.Context, taskID string) error {
	return c.control(ctx, taskID, crawler.ActionPause, c.services.Crawler.Pause, msgPaused, msgPauseFailed)
}

// Resume asks the backend to resume a paused task.
func (c *Controller) Resume(ctx context.Context, taskID string) error {
	return c.control(ctx, taskID, crawler.ActionResume, c.services.Crawler.Resume, msgResumed, msgResumeFailed)
}

// Cancel asks the backend to cancel a running or paused task.
func (c *Controller) Cancel(ctx context.Context, taskID string) error {
	return c.control(ctx, taskID, crawler.ActionCancel, c.services.Crawler.Cancel, msgCancelled, msgCancelFailed)
}

type controlFunc func(context.Context, string) (crawler.TaskActionResponse, error)

func (c *Controller) control(ctx context.Context, taskID string, action crawler.Action, call controlFunc, okMsg, failMsg string) error {
	if err := c.guard(taskID, action); err != nil {
		return err
	}
	resp, err := call(ctx, taskID)
	if err != nil {
		c.logger.Warn("task action failed", zap.String("task_id", taskID), zap.String("action", string(action)), zap.Error(err))
		c.stores.UI.AddNotification(state.NotifyError, failMsg)
		return err
	}
	if resp.Status.Valid() {
		status := resp.Status
		c.stores.Tasks.UpdateTask(taskID, crawler.TaskPatch{Status: &status})
	}
	c.stores.UI.AddNotification(state.NotifySuccess, okMsg)
	return nil
}

// guard refuses actions the task state machine does not allow from the
// task's current status.
func (c *Controller) guard(taskID string, action crawler.Action) error {
	task, ok := c.stores.Tasks.Snapshot().Task(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if err := crawler.CheckAction(task.Status, action); err != nil {
		c.stores.UI.AddNotification(state.NotifyWarning, err.Error())
		return err
	}
	return nil
}

// RefreshTask fetches one task and merges it into the task container,
// adding it when the container does not hold it yet.
func (c *Controller) RefreshTask(ctx context.Context, taskID string) (crawler.Task, error) {
	task, err := c.services.Tasks.Get(ctx, taskID)
	if err != nil {
		c.logger.Warn("refresh task failed", zap.String("task_id", taskID), zap.Error(err))
		c.stores.UI.AddNotification(state.NotifyError, msgTaskFailed)
		return crawler.Task{}, err
	}
	if task.ID == "" {
		task.ID = taskID
	}
	if _, ok := c.stores.Tasks.Snapshot().Task(taskID); !ok {
		c.stores.Tasks.AddTask(task)
		c.stores.Tasks.UpdateTaskProgress(taskID, task.Progress)
		return task, nil
	}
	patch := crawler.TaskPatch{
		Name:         &task.Name,
		Progress:     &task.Progress,
		StartedAt:    task.StartedAt,
		CompletedAt:  task.CompletedAt,
		ErrorMessage: &task.ErrorMessage,
	}
	if task.Status.Valid() {
		patch.Status = &task.Status
	}
	c.stores.Tasks.UpdateTask(taskID, patch)
	return task, nil
}

// DeleteTask removes a finished task on the backend and from the container.
func (c *Controller) DeleteTask(ctx context.Context, taskID string) error {
	if err := c.guard(taskID, crawler.ActionDelete); err != nil {
		return err
	}
	if err := c.services.Tasks.Delete(ctx, taskID); err != nil {
		c.logger.Warn("delete task failed", zap.String("task_id", taskID), zap.Error(err))
		c.stores.UI.AddNotification(state.NotifyError, msgDeleteFailed)
		return err
	}
	c.stores.Tasks.RemoveTask(taskID)
	c.stores.UI.AddNotification(state.NotifySuccess, msgDeleted)
	return nil
}

// LoadTasks replaces the task list with one page from the backend. A reply
// that arrives after a newer load started is discarded.
func (c *Controller) LoadTasks(ctx context.Context, params service.ListTasksParams) error {
	ticket := c.stores.Tasks.BeginLoad()
	page, err := c.services.Tasks.List(ctx, params)
	if err != nil {
		if c.stores.Tasks.FailLoad(ticket, err.Error()) {
			c.stores.UI.AddNotification(state.NotifyError, msgTasksFailed)
		}
		return err
	}
	if !c.stores.Tasks.ApplyList(ticket, page) {
		c.logger.Debug("stale task list discarded")
	}
	return nil
}

// LoadResults fetches the page the result container points at, using its
// filters and sorting.
func (c *Controller) LoadResults(ctx context.Context) error {
	snap := c.stores.Results.Snapshot()
	ticket := c.stores.Results.BeginLoad()
	page, err := c.services.Results.List(ctx, snap.Page, snap.PageSize, snap.Query())
	if err != nil {
		if c.stores.Results.FailLoad(ticket, err.Error()) {
			c.stores.UI.AddNotification(state.NotifyError, msgResultsFailed)
		}
		return err
	}
	if !c.stores.Results.ApplyPage(ticket, page) {
		c.logger.Debug("stale result page discarded")
	}
	return nil
}

// GoToPage moves the result list to page, clamped to the known range, and
// reloads it.
func (c *Controller) GoToPage(ctx context.Context, page int) error {
	p := c.stores.Results.Snapshot().Pagination()
	p.Page = page
	c.stores.Results.SetPage(p.Clamp().Page)
	return c.LoadResults(ctx)
}

// SetPageSize changes the page size, which returns the list to page 1, and
// reloads it.
func (c *Controller) SetPageSize(ctx context.Context, size int) error {
	c.stores.Results.SetPageSize(size)
	return c.LoadResults(ctx)
}

// Search applies filter from page 1 and reloads the result list.
func (c *Controller) Search(ctx context.Context, filter crawler.ResultsFilter) error {
	c.stores.Results.SetFilters(filter)
	c.stores.Results.SetPage(1)
	return c.LoadResults(ctx)
}

// BatchDeleteResults deletes the selected results. An empty selection is
// refused with a warning and nothing is sent. On success the selection is
// cleared and the current page reloaded.
func (c *Controller) BatchDeleteResults(ctx context.Context) error {
	ids := c.stores.Results.Snapshot().Selected
	if len(ids) == 0 {
		c.stores.UI.AddNotification(state.NotifyWarning, msgSelectFirst)
		return ErrNothingSelected
	}
	if err := c.deleteResults(ctx, ids); err != nil {
		return err
	}
	return c.LoadResults(ctx)
}

// DeleteResults deletes results by id whether or not they are on the loaded
// page. Deleted ids leave the selection; the page is not reloaded.
func (c *Controller) DeleteResults(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		c.stores.UI.AddNotification(state.NotifyWarning, msgSelectFirst)
		return ErrNothingSelected
	}
	return c.deleteResults(ctx, ids)
}

func (c *Controller) deleteResults(ctx context.Context, ids []string) error {
	if err := c.services.Results.BatchDelete(ctx, ids); err != nil {
		c.logger.Warn("batch delete failed", zap.Int("count", len(ids)), zap.Error(err))
		c.stores.UI.AddNotification(state.NotifyError, msgBatchFailed)
		return err
	}
	c.stores.Results.Deselect(ids...)
	c.stores.UI.AddNotification(state.NotifySuccess, msgBatchDeleted)
	return nil
}

// Export downloads the results matching the current filters in format and
// saves them as results_<unixms>.<ext>. No container changes.
func (c *Controller) Export(ctx context.Context, format crawler.ExportFormat) (download.Saved, error) {
	if c.saver == nil {
		return download.Saved{}, ErrNoSaver
	}
	format, err := crawler.ParseExportFormat(string(format))
	if err != nil {
		return download.Saved{}, err
	}
	payload, err := c.services.Results.Export(ctx, c.stores.Results.Snapshot().Query(), format)
	if err != nil {
		return download.Saved{}, err
	}
	return c.saver.Save(ctx, format, payload.ContentType, payload.Data)
}

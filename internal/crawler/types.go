package crawler

import "time"

// CrawlerType enumerates what a crawl task collects.
type CrawlerType string

// Supported crawl types.
const (
	TypeVideo   CrawlerType = "video"
	TypeNote    CrawlerType = "note"
	TypeComment CrawlerType = "comment"
	TypeSearch  CrawlerType = "search"
	TypeDetail  CrawlerType = "detail"
	TypeCreator CrawlerType = "creator"
)

// Valid reports whether t is one of the known crawl types.
func (t CrawlerType) Valid() bool {
	switch t {
	case TypeVideo, TypeNote, TypeComment, TypeSearch, TypeDetail, TypeCreator:
		return true
	default:
		return false
	}
}

// Priority orders queued tasks on the backend.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// SortOrder is the direction of a result sort.
type SortOrder string

// Sort directions.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterOptions narrows what the crawler keeps.
type FilterOptions struct {
	MinLikes    *int   `json:"minLikes,omitempty" yaml:"min_likes,omitempty" mapstructure:"min_likes"`
	MaxLikes    *int   `json:"maxLikes,omitempty" yaml:"max_likes,omitempty" mapstructure:"max_likes"`
	MinComments *int   `json:"minComments,omitempty" yaml:"min_comments,omitempty" mapstructure:"min_comments"`
	MaxComments *int   `json:"maxComments,omitempty" yaml:"max_comments,omitempty" mapstructure:"max_comments"`
	StartDate   string `json:"startDate,omitempty" yaml:"start_date,omitempty" mapstructure:"start_date"`
	EndDate     string `json:"endDate,omitempty" yaml:"end_date,omitempty" mapstructure:"end_date"`
	HasVideo    *bool  `json:"hasVideo,omitempty" yaml:"has_video,omitempty" mapstructure:"has_video"`
	HasImage    *bool  `json:"hasImage,omitempty" yaml:"has_image,omitempty" mapstructure:"has_image"`
}

// Config is the operator-authored crawl intent. It is snapshotted into the
// Task created from it.
type Config struct {
	Platforms      []Platform    `json:"platforms" yaml:"platforms" mapstructure:"platforms"`
	Keywords       string        `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
	CrawlerType    CrawlerType   `json:"crawlerType" yaml:"crawler_type" mapstructure:"crawler_type"`
	Limit          int           `json:"limit" yaml:"limit" mapstructure:"limit"`
	Filters        FilterOptions `json:"filters" yaml:"filters" mapstructure:"filters"`
	Priority       Priority      `json:"priority" yaml:"priority" mapstructure:"priority"`
	EnableProxy    bool          `json:"enableProxy,omitempty" yaml:"enable_proxy" mapstructure:"enable_proxy"`
	EnableComments bool          `json:"enableComments,omitempty" yaml:"enable_comments" mapstructure:"enable_comments"`
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	cp := c
	cp.Platforms = append([]Platform(nil), c.Platforms...)
	cp.Filters = c.Filters.Clone()
	return cp
}

// Clone returns a deep copy of f.
func (f FilterOptions) Clone() FilterOptions {
	cp := f
	cp.MinLikes = cloneInt(f.MinLikes)
	cp.MaxLikes = cloneInt(f.MaxLikes)
	cp.MinComments = cloneInt(f.MinComments)
	cp.MaxComments = cloneInt(f.MaxComments)
	cp.HasVideo = cloneBool(f.HasVideo)
	cp.HasImage = cloneBool(f.HasImage)
	return cp
}

// Progress is the crawl counter reported for a task. It is replaced
// wholesale on every progress event.
type Progress struct {
	Current    int      `json:"current"`
	Total      int      `json:"total"`
	Percentage int      `json:"percentage"`
	Speed      *float64 `json:"speed,omitempty"`
	ETA        *float64 `json:"eta,omitempty"`
}

// NewProgress builds a Progress with the percentage derived from the counts.
func NewProgress(current, total int) Progress {
	return Progress{Current: current, Total: total, Percentage: Percentage(current, total)}
}

// Normalize recomputes the derived percentage from the counters.
func (p Progress) Normalize() Progress {
	p.Percentage = Percentage(p.Current, p.Total)
	return p
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	cp := p
	if p.Speed != nil {
		v := *p.Speed
		cp.Speed = &v
	}
	if p.ETA != nil {
		v := *p.ETA
		cp.ETA = &v
	}
	return cp
}

// Percentage returns round(current/total*100) clamped to [0,100], or 0 when
// total is not positive.
func Percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	pct := (float64(current)*100 + float64(total)/2) / float64(total)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}

// LogLevel classifies a task log line.
type LogLevel string

// Task log levels.
const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// TaskLog is a single log line emitted by a running task.
type TaskLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// Task is one crawl job instance tracked by the console.
type Task struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Platform     Platform    `json:"platform"`
	CrawlerType  CrawlerType `json:"crawlerType"`
	Status       TaskStatus  `json:"status"`
	Config       Config      `json:"config"`
	Progress     Progress    `json:"progress"`
	CreatedAt    time.Time   `json:"createdAt"`
	StartedAt    *time.Time  `json:"startedAt,omitempty"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	Logs         []TaskLog   `json:"logs,omitempty"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	cp := t
	cp.Config = t.Config.Clone()
	cp.Progress = t.Progress.Clone()
	cp.StartedAt = cloneTime(t.StartedAt)
	cp.CompletedAt = cloneTime(t.CompletedAt)
	if t.Logs != nil {
		cp.Logs = append([]TaskLog(nil), t.Logs...)
	}
	return cp
}

// TaskPatch is a partial update applied to a Task. Nil fields are left
// untouched.
type TaskPatch struct {
	Name         *string
	Status       *TaskStatus
	Progress     *Progress
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	Logs         []TaskLog
}

// Apply shallow-merges the patch into t and returns the result.
func (p TaskPatch) Apply(t Task) Task {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Progress != nil {
		t.Progress = p.Progress.Clone()
	}
	if p.StartedAt != nil {
		t.StartedAt = cloneTime(p.StartedAt)
	}
	if p.CompletedAt != nil {
		t.CompletedAt = cloneTime(p.CompletedAt)
	}
	if p.ErrorMessage != nil {
		t.ErrorMessage = *p.ErrorMessage
	}
	if p.Logs != nil {
		t.Logs = append([]TaskLog(nil), p.Logs...)
	}
	return t
}

// CreateTaskRequest is the body of POST /crawler/tasks.
type CreateTaskRequest struct {
	Name        string      `json:"name"`
	Platform    Platform    `json:"platform"`
	CrawlerType CrawlerType `json:"crawlerType"`
	Config      Config      `json:"config"`
}

// StartRequest is the body of POST /crawler/start.
type StartRequest struct {
	Platform       Platform        `json:"platform"`
	Type           CrawlerType     `json:"type"`
	Config         StartConfig     `json:"config"`
	CrawlerOptions *CrawlerOptions `json:"crawlerOptions,omitempty"`
}

// StartConfig carries the crawl parameters of a StartRequest.
type StartConfig struct {
	Keyword        string         `json:"keyword,omitempty"`
	Pages          int            `json:"pages,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	Sort           string         `json:"sort,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	EnableComments bool           `json:"enableComments,omitempty"`
	EnableProxy    bool           `json:"enableProxy,omitempty"`
	Filters        *FilterOptions `json:"filters,omitempty"`
}

// CrawlerOptions tunes the backend crawler for one run.
type CrawlerOptions struct {
	Headless *bool  `json:"headless,omitempty"`
	Timeout  int    `json:"timeout,omitempty"`
	Proxy    string `json:"proxy,omitempty"`
	UseCache *bool  `json:"useCache,omitempty"`
}

// TaskActionResponse is returned by pause/resume/cancel.
type TaskActionResponse struct {
	TaskID  string     `json:"taskId"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// Result is one crawled content item. The console never mutates it.
type Result struct {
	ID           string    `json:"id"`
	Platform     Platform  `json:"platform"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
	AuthorID     string    `json:"authorId,omitempty"`
	Likes        int64     `json:"likes"`
	Comments     int64     `json:"comments"`
	Shares       int64     `json:"shares"`
	Views        *int64    `json:"views,omitempty"`
	URL          string    `json:"url"`
	MediaURLs    []string  `json:"mediaUrls"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Location     string    `json:"location,omitempty"`
	PublishedAt  time.Time `json:"publishedAt"`
	CrawledAt    time.Time `json:"crawledAt"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	cp := r
	if r.Views != nil {
		v := *r.Views
		cp.Views = &v
	}
	cp.MediaURLs = append([]string(nil), r.MediaURLs...)
	cp.Tags = append([]string(nil), r.Tags...)
	return cp
}

// Comment belongs to a Result and may nest replies.
type Comment struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	Content      string    `json:"content"`
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
	Likes        int64     `json:"likes"`
	Replies      int64     `json:"replies"`
	CreatedAt    time.Time `json:"createdAt"`
	ParentID     string    `json:"parentId,omitempty"`
	SubComments  []Comment `json:"subComments,omitempty"`
}

// ResultDetail is the expanded form returned by GET /results/{id}.
type ResultDetail struct {
	Result
	CommentCount int64             `json:"commentCount"`
	CommentList  []Comment         `json:"commentList,omitempty"`
	Statistics   *ResultStatistics `json:"statistics,omitempty"`
}

// ResultStatistics aggregates engagement for a single result.
type ResultStatistics struct {
	TotalComments int64 `json:"totalComments"`
	TotalLikes    int64 `json:"totalLikes"`
	TotalShares   int64 `json:"totalShares"`
	TotalViews    int64 `json:"totalViews"`
}

// ResultsFilter narrows GET /results and GET /results/export.
type ResultsFilter struct {
	Platform  Platform  `json:"platform,omitempty"`
	Keyword   string    `json:"keyword,omitempty"`
	MinLikes  *int      `json:"minLikes,omitempty"`
	MaxLikes  *int      `json:"maxLikes,omitempty"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	SortBy    string    `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Page is the paginated list shape returned by list endpoints.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page,omitempty"`
	PageSize   int `json:"pageSize,omitempty"`
	TotalPages int `json:"totalPages,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

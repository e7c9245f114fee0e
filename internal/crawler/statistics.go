package crawler

// TaskStatistics is returned by GET /crawler/tasks/statistics.
type TaskStatistics struct {
	TotalTasks     int `json:"totalTasks"`
	RunningTasks   int `json:"runningTasks"`
	CompletedTasks int `json:"completedTasks"`
	FailedTasks    int `json:"failedTasks"`
	PendingTasks   int `json:"pendingTasks"`
}

// StatisticsSummary is returned by GET /statistics/summary.
type StatisticsSummary struct {
	TotalResults         int64            `json:"totalResults"`
	TotalTasks           int64            `json:"totalTasks"`
	TotalComments        int64            `json:"totalComments"`
	PlatformDistribution map[string]int64 `json:"platformDistribution"`
	TypeDistribution     map[string]int64 `json:"typeDistribution"`
}

// PlatformStatistics is one row of GET /statistics/platform.
type PlatformStatistics struct {
	Platform    string  `json:"platform"`
	Count       int64   `json:"count"`
	Percentage  float64 `json:"percentage"`
	AvgLikes    float64 `json:"avgLikes"`
	AvgComments float64 `json:"avgComments"`
}

// TimelineStatistics is one bucket of GET /statistics/timeline.
type TimelineStatistics struct {
	Date     string `json:"date"`
	Count    int64  `json:"count"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
}

// KeywordStatistics is one entry of GET /statistics/keywords.
type KeywordStatistics struct {
	Keyword string  `json:"keyword"`
	Count   int64   `json:"count"`
	Weight  float64 `json:"weight"`
}

// AuthorStatistics is one entry of GET /statistics/top-authors.
type AuthorStatistics struct {
	Author     string   `json:"author"`
	AuthorID   string   `json:"authorId,omitempty"`
	Platform   Platform `json:"platform,omitempty"`
	PostCount  int64    `json:"postCount"`
	TotalLikes int64    `json:"totalLikes"`
}

// EngagementStatistics is returned by GET /statistics/engagement.
type EngagementStatistics struct {
	TotalLikes     int64   `json:"totalLikes"`
	TotalComments  int64   `json:"totalComments"`
	TotalShares    int64   `json:"totalShares"`
	TotalViews     int64   `json:"totalViews"`
	AvgLikes       float64 `json:"avgLikes"`
	AvgComments    float64 `json:"avgComments"`
	AvgShares      float64 `json:"avgShares"`
	EngagementRate float64 `json:"engagementRate"`
}

// Granularity selects the timeline bucket width.
type Granularity string

// Timeline granularities.
const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

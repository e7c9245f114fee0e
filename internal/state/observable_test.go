package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

func TestSubscribeNotifiesSynchronously(t *testing.T) {
	t.Parallel()

	store := NewUIStore(nil)
	var seen []UISnapshot
	unsubscribe := store.Subscribe(func(s UISnapshot) { seen = append(seen, s) })

	store.ToggleSidebar()
	require.Len(t, seen, 1)
	require.True(t, seen[0].SidebarCollapsed)
	require.Equal(t, uint64(1), seen[0].Version)

	store.SetTheme(ThemeDark)
	require.Len(t, seen, 2)
	require.Equal(t, uint64(2), seen[1].Version)

	unsubscribe()
	unsubscribe()
	store.ToggleSidebar()
	require.Len(t, seen, 2)
}

func TestListenersMayMutateTheStore(t *testing.T) {
	t.Parallel()

	store := NewResultStore()
	store.Subscribe(func(s ResultSnapshot) {
		if s.Page > 1 && len(s.Results) == 0 {
			store.SetPage(1)
		}
	})
	store.SetPage(3)
	require.Equal(t, 1, store.Snapshot().Page)
}

func TestConcurrentMutationsAreSerialised(t *testing.T) {
	t.Parallel()

	store := NewTaskStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.AddTask(crawler.Task{ID: string(rune('a' + i%26)), Status: crawler.StatusPending})
			_ = store.Snapshot()
		}(i)
	}
	wg.Wait()
	snap := store.Snapshot()
	require.Len(t, snap.Tasks, 50)
	require.Equal(t, uint64(50), snap.Version)
}

type fixedIDs struct {
	ids []string
	err error
}

func (f *fixedIDs) NewID() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

func TestNotificationsQueueInOrder(t *testing.T) {
	t.Parallel()

	store := NewUIStore(&fixedIDs{ids: []string{"n1", "n2", "n3"}})
	require.Equal(t, "n1", store.AddNotification(NotifyInfo, "hello"))
	require.Equal(t, "n2", store.AddNotification(NotifyWarning, "careful"))
	require.Equal(t, "n3", store.AddNotification(NotifyError, "oops"))

	store.RemoveNotification("n2")
	store.RemoveNotification("unknown")
	snap := store.Snapshot()
	require.Equal(t, []Notification{
		{ID: "n1", Type: NotifyInfo, Message: "hello"},
		{ID: "n3", Type: NotifyError, Message: "oops"},
	}, snap.Notifications)
	require.Equal(t, uint64(4), snap.Version)
}

func TestNotificationIDsSurviveGeneratorFailure(t *testing.T) {
	t.Parallel()

	store := NewUIStore(&fixedIDs{err: errors.New("entropy")})
	a := store.AddNotification(NotifyInfo, "a")
	b := store.AddNotification(NotifyInfo, "b")
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

func TestDefaultNotificationIDsAreUnique(t *testing.T) {
	t.Parallel()

	store := NewUIStore(nil)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := store.AddNotification(NotifySuccess, "ok")
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestModal(t *testing.T) {
	t.Parallel()

	store := NewUIStore(nil)
	require.Equal(t, ThemeLight, store.Snapshot().Theme)
	store.ShowModal("confirm delete")
	require.True(t, store.Snapshot().ModalVisible)
	require.Equal(t, "confirm delete", store.Snapshot().ModalContent)
	store.HideModal()
	require.False(t, store.Snapshot().ModalVisible)
	require.Empty(t, store.Snapshot().ModalContent)
}

func TestCrawlerConfigReset(t *testing.T) {
	t.Parallel()

	store := NewCrawlerConfigStore()
	store.SetSelectedPlatforms([]crawler.Platform{crawler.Xiaohongshu})
	store.SetKeywords("test")
	store.SetLimit(500)
	store.SetPriority(crawler.PriorityHigh)
	store.SetCrawlerType(crawler.TypeSearch)
	store.SetEnableComments(true)
	require.NoError(t, store.Draft().Validate())

	store.ResetConfig()
	snap := store.Snapshot()
	require.Len(t, snap.Platforms, 7)
	require.Empty(t, snap.SelectedPlatforms)
	require.Equal(t, crawler.TypeSearch, snap.CrawlerType)
	require.Equal(t, 50, snap.Limit)
	require.Equal(t, crawler.PriorityMedium, snap.Priority)
	require.False(t, snap.EnableComments)
	require.Empty(t, snap.Keywords)
}

func TestCrawlerApplyConfig(t *testing.T) {
	t.Parallel()

	five := 5
	cfg := crawler.Config{
		Platforms:   []crawler.Platform{crawler.Bilibili, crawler.Douyin},
		Keywords:    "cats",
		CrawlerType: crawler.TypeVideo,
		Limit:       100,
		Priority:    crawler.PriorityLow,
		Filters:     crawler.FilterOptions{MinLikes: &five},
	}
	store := NewCrawlerConfigStore()
	store.ApplyConfig(cfg)
	five = 6

	draft := store.Draft()
	require.Equal(t, []crawler.Platform{crawler.Bilibili, crawler.Douyin}, draft.Platforms)
	require.Equal(t, 5, *draft.Filters.MinLikes)
	require.Equal(t, crawler.TypeVideo, draft.CrawlerType)
	require.Len(t, store.Snapshot().Platforms, 7)
}

func TestNewStores(t *testing.T) {
	t.Parallel()

	s := NewStores(nil)
	require.NotNil(t, s.Crawler)
	require.NotNil(t, s.Results)
	require.NotNil(t, s.Tasks)
	require.NotNil(t, s.UI)
}

package state

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// Theme is the console colour scheme.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// NotificationType classifies a transient notification.
type NotificationType string

// Notification types.
const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
)

// Notification is one queued toast.
type Notification struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
}

// UISnapshot is a point-in-time copy of the UI chrome.
type UISnapshot struct {
	Version          uint64         `json:"version"`
	SidebarCollapsed bool           `json:"sidebarCollapsed"`
	Theme            Theme          `json:"theme"`
	ModalVisible     bool           `json:"modalVisible"`
	ModalContent     string         `json:"modalContent,omitempty"`
	Notifications    []Notification `json:"notifications"`
}

func copyUI(s UISnapshot, version uint64) UISnapshot {
	s.Version = version
	s.Notifications = append([]Notification{}, s.Notifications...)
	return s
}

type uuidIDs struct{}

func (uuidIDs) NewID() (string, error) { return uuid.NewString(), nil }

// UIStore holds sidebar, theme, modal and notification state.
type UIStore struct {
	c   *container[UISnapshot]
	ids crawler.IDGenerator
	seq fence
}

// NewUIStore returns a store with the light theme. A nil ids uses random
// UUIDs for notification ids.
func NewUIStore(ids crawler.IDGenerator) *UIStore {
	if ids == nil {
		ids = uuidIDs{}
	}
	initial := UISnapshot{Theme: ThemeLight, Notifications: []Notification{}}
	return &UIStore{c: newContainer(initial, copyUI), ids: ids}
}

// Snapshot returns a copy of the current state.
func (s *UIStore) Snapshot() UISnapshot { return s.c.snapshot() }

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *UIStore) Subscribe(fn func(UISnapshot)) func() {
	return s.c.subscribe(fn)
}

// ToggleSidebar flips the sidebar collapse flag.
func (s *UIStore) ToggleSidebar() {
	s.set(func(st *UISnapshot) { st.SidebarCollapsed = !st.SidebarCollapsed })
}

// SetTheme sets the colour scheme.
func (s *UIStore) SetTheme(theme Theme) {
	s.set(func(st *UISnapshot) { st.Theme = theme })
}

// ShowModal opens the modal with content.
func (s *UIStore) ShowModal(content string) {
	s.set(func(st *UISnapshot) {
		st.ModalVisible = true
		st.ModalContent = content
	})
}

// HideModal closes the modal and drops its content.
func (s *UIStore) HideModal() {
	s.set(func(st *UISnapshot) {
		st.ModalVisible = false
		st.ModalContent = ""
	})
}

// AddNotification queues a notification and returns its generated id.
func (s *UIStore) AddNotification(kind NotificationType, message string) string {
	id, err := s.ids.NewID()
	if err != nil || id == "" {
		id = "notification-" + strconv.FormatUint(uint64(s.seq.next()), 10)
	}
	n := Notification{ID: id, Type: kind, Message: message}
	s.set(func(st *UISnapshot) { st.Notifications = append(st.Notifications, n) })
	return id
}

// RemoveNotification drops the notification with the given id. Unknown ids
// are ignored.
func (s *UIStore) RemoveNotification(id string) {
	s.c.mutate(func(st *UISnapshot) bool {
		for i, n := range st.Notifications {
			if n.ID == id {
				st.Notifications = append(st.Notifications[:i:i], st.Notifications[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (s *UIStore) set(fn func(*UISnapshot)) {
	s.c.mutate(func(st *UISnapshot) bool {
		fn(st)
		return true
	})
}

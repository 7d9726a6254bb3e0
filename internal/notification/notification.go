package notification

import (
	"encoding/json"
	"errors"
	"time"

	notificationDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/notification"
)

type Type string

const (
	TypeAttendance Type = "attendance"
	TypeReminder   Type = "reminder"
	TypeWarning    Type = "warning"
	TypeInfo       Type = "info"
	TypeSystem     Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAttendance, TypeReminder, TypeWarning, TypeInfo, TypeSystem:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TTL is how long a notification lives before cleanup removes it regardless of read state.
const TTL = 30 * 24 * time.Hour

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        int64                  `json:"id"`
	UserID    int64                  `json:"userId"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      Type                   `json:"type"`
	Priority  Priority               `json:"priority"`
	IsRead    bool                   `json:"isRead"`
	ReadAt    *time.Time             `json:"readAt"`
	Data      map[string]interface{} `json:"data"`
	ExpiresAt time.Time              `json:"expiresAt"`
	CreatedAt time.Time              `json:"createdAt"`
}

func FromDataModel(n *notificationDatamodel.Notification) *Notification {
	data := map[string]interface{}{}
	if n.Data != "" {
		// rows written by this package always hold an object
		_ = json.Unmarshal([]byte(n.Data), &data)
	}
	return &Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      Type(n.Type),
		Priority:  Priority(n.Priority),
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		Data:      data,
		ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt,
	}
}

// Params describes a notification to create for one user.
type Params struct {
	UserID   int64
	Title    string
	Message  string
	Type     Type
	Priority Priority
	Data     map[string]interface{}
}

func (p Params) toDataModel(now time.Time) (*notificationDatamodel.Notification, error) {
	typ := p.Type
	if typ == "" {
		typ = TypeInfo
	}
	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	data := "{}"
	if len(p.Data) > 0 {
		raw, err := json.Marshal(p.Data)
		if err != nil {
			return nil, err
		}
		data = string(raw)
	}

	return &notificationDatamodel.Notification{
		UserID:    p.UserID,
		Title:     p.Title,
		Message:   p.Message,
		Type:      string(typ),
		Priority:  string(priority),
		Data:      data,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int64           `json:"unreadCount"`
}

type Stats struct {
	Total  int64            `json:"total"`
	Unread int64            `json:"unread"`
	Read   int64            `json:"read"`
	ByType map[string]int64 `json:"byType"`
}

type TypeCount struct {
	Type  string
	Count int64
}

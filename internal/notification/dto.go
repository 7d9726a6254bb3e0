package notification

import (
	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

type ListFilter struct {
	UnreadOnly bool
	Type       Type
	Page       int
	Limit      int
}

func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// BroadcastDTO sends one notification to the listed users, or else to every user with Role,
// or else to everyone.
type BroadcastDTO struct {
	Title    string             `json:"title"`
	Message  string             `json:"message"`
	Type     Type               `json:"type"`
	Priority Priority           `json:"priority"`
	Role     userDatamodel.Role `json:"role"`
	UserIDs  []int64            `json:"userIds"`
}

func (d BroadcastDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("title", d.Title).Required().MinLength(3).MaxLength(100)
	validator.Field("message", d.Message).Required().MinLength(10).MaxLength(500)
	validator.Field("type", string(d.Type)).OneOf(
		string(TypeAttendance), string(TypeReminder), string(TypeWarning), string(TypeInfo), string(TypeSystem))
	validator.Field("priority", string(d.Priority)).OneOf(
		string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent))
	validator.Field("role", string(d.Role)).OneOf(string(userDatamodel.RoleAdmin), string(userDatamodel.RoleEmployee))
	return validator.Validate()
}

type BroadcastResult struct {
	RecipientCount int `json:"recipientCount"`
}

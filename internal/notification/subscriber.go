package notification

import (
	"context"
	"fmt"

	"github.com/frahmantamala/attendance-management/internal/attendance"
	"github.com/frahmantamala/attendance-management/internal/core/events"
)

// Subscriber turns attendance events into in-app notifications.
type Subscriber struct {
	service *Service
}

func NewSubscriber(service *Service) *Subscriber {
	return &Subscriber{service: service}
}

func (sub *Subscriber) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeClockedIn, sub.HandleClockedIn)
	bus.Subscribe(events.EventTypeClockedOut, sub.HandleClockedOut)
}

func (sub *Subscriber) HandleClockedIn(ctx context.Context, event events.Event) error {
	evt, ok := event.(*events.ClockedInEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	at := evt.ClockIn.In(sub.service.loc).Format("15:04")
	p := Params{
		UserID:   evt.UserID,
		Type:     TypeAttendance,
		Priority: PriorityMedium,
		Title:    "Clock In Successful",
		Message:  fmt.Sprintf("You clocked in on time at %s. Have a productive day!", at),
		Data: map[string]interface{}{
			"presenceId": evt.PresenceID,
			"status":     evt.Status,
			"clockIn":    evt.ClockIn,
		},
	}
	if evt.Status == string(attendance.StatusLate) {
		p.Priority = PriorityHigh
		p.Title = "Clock In Late"
		p.Message = fmt.Sprintf("You clocked in late at %s. Please pay more attention to your arrival time.", at)
	}

	_, err := sub.service.Notify(ctx, p)
	return err
}

func (sub *Subscriber) HandleClockedOut(ctx context.Context, event events.Event) error {
	evt, ok := event.(*events.ClockedOutEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	at := evt.ClockOut.In(sub.service.loc).Format("15:04")
	_, err := sub.service.Notify(ctx, Params{
		UserID:   evt.UserID,
		Type:     TypeAttendance,
		Priority: PriorityMedium,
		Title:    "Clock Out Successful",
		Message: fmt.Sprintf("You clocked out at %s. Total work time today: %s.",
			at, attendance.FormatDuration(evt.WorkDuration)),
		Data: map[string]interface{}{
			"presenceId":   evt.PresenceID,
			"clockOut":     evt.ClockOut,
			"workDuration": evt.WorkDuration,
		},
	})
	return err
}

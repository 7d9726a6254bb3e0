package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/attendance-management/internal"
	notificationDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/notification"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/attendance-management/internal/core/events"
	"github.com/frahmantamala/attendance-management/internal/notification"
	notificationPostgres "github.com/frahmantamala/attendance-management/internal/notification/postgres"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type staticRecipients map[userDatamodel.Role][]int64

func (s staticRecipients) ListUserIDs(ctx context.Context, role userDatamodel.Role) ([]int64, error) {
	if role == "" {
		var all []int64
		for _, ids := range s {
			all = append(all, ids...)
		}
		return all, nil
	}
	return s[role], nil
}

var _ = Describe("Notification Service", func() {
	var (
		db    *gorm.DB
		svc   *notification.Service
		ctx   context.Context
		now   time.Time
		lg    *slog.Logger
		wib   = time.FixedZone("WIB", 7*60*60)
		clock = func() time.Time { return now }
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&notificationDatamodel.Notification{})).To(Succeed())

		now = time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC)
		lg = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		recipients := staticRecipients{
			userDatamodel.RoleAdmin:    {1},
			userDatamodel.RoleEmployee: {2, 3},
		}
		svc = notification.NewService(notificationPostgres.NewNotificationRepository(db), recipients, lg,
			notification.WithClock(clock),
			notification.WithLocation(wib))
		ctx = context.Background()
	})

	notify := func(userID int64, typ notification.Type) *notification.Notification {
		n, err := svc.Notify(ctx, notification.Params{
			UserID:  userID,
			Title:   "Title",
			Message: "Message",
			Type:    typ,
			Data:    map[string]interface{}{"k": "v"},
		})
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	It("creates notifications with defaults and a 30 day expiry", func() {
		n, err := svc.Notify(ctx, notification.Params{UserID: 2, Title: "Hello", Message: "World"})
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Type).To(Equal(notification.TypeInfo))
		Expect(n.Priority).To(Equal(notification.PriorityMedium))
		Expect(n.ExpiresAt).To(Equal(now.Add(30 * 24 * time.Hour)))
		Expect(n.IsRead).To(BeFalse())
	})

	It("lists a user's notifications with filters and unread count", func() {
		notify(2, notification.TypeInfo)
		notify(2, notification.TypeReminder)
		read := notify(2, notification.TypeReminder)
		notify(3, notification.TypeInfo)

		_, err := svc.MarkAsRead(ctx, 2, read.ID)
		Expect(err).NotTo(HaveOccurred())

		list, total, err := svc.List(ctx, 2, notification.ListFilter{Page: 1, Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(int64(3)))
		Expect(list.UnreadCount).To(Equal(int64(2)))
		Expect(list.Notifications[0].Data).To(HaveKeyWithValue("k", "v"))

		list, total, err = svc.List(ctx, 2, notification.ListFilter{UnreadOnly: true, Type: notification.TypeReminder, Page: 1, Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(int64(1)))
		Expect(list.Notifications).To(HaveLen(1))
	})

	It("rejects an unknown type filter", func() {
		_, _, err := svc.List(ctx, 2, notification.ListFilter{Type: "bogus", Page: 1, Limit: 10})
		Expect(err).To(HaveOccurred())
	})

	It("aggregates stats by type", func() {
		notify(2, notification.TypeInfo)
		notify(2, notification.TypeInfo)
		n := notify(2, notification.TypeWarning)
		_, err := svc.MarkAsRead(ctx, 2, n.ID)
		Expect(err).NotTo(HaveOccurred())

		stats, err := svc.Stats(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Total).To(Equal(int64(3)))
		Expect(stats.Unread).To(Equal(int64(2)))
		Expect(stats.Read).To(Equal(int64(1)))
		Expect(stats.ByType).To(HaveKeyWithValue("info", int64(2)))
		Expect(stats.ByType).To(HaveKeyWithValue("warning", int64(1)))
	})

	It("only lets the owner read or delete a notification", func() {
		n := notify(2, notification.TypeInfo)

		_, err := svc.MarkAsRead(ctx, 3, n.ID)
		Expect(errors.Is(err, internal.ErrNotificationNotFound)).To(BeTrue())
		Expect(errors.Is(svc.Delete(ctx, 3, n.ID), internal.ErrNotificationNotFound)).To(BeTrue())

		Expect(svc.Delete(ctx, 2, n.ID)).To(Succeed())
	})

	It("marks all as read and clears read ones", func() {
		notify(2, notification.TypeInfo)
		notify(2, notification.TypeInfo)

		n, err := svc.MarkAllAsRead(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		cleared, err := svc.ClearRead(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(cleared).To(Equal(int64(2)))
	})

	It("cleans read notifications older than 30 days and expired ones", func() {
		oldRead := notify(2, notification.TypeInfo)
		notify(2, notification.TypeInfo) // unread, expired by the time cleanup runs
		_, err := svc.MarkAsRead(ctx, 2, oldRead.ID)
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(30*24*time.Hour + time.Hour)
		fresh := notify(2, notification.TypeInfo)
		_, err = svc.MarkAsRead(ctx, 2, fresh.ID)
		Expect(err).NotTo(HaveOccurred())

		removed, err := svc.CleanOld(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal(int64(2)))

		_, total, err := svc.List(ctx, 2, notification.ListFilter{Page: 1, Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(int64(1)))
	})

	Describe("Broadcast", func() {
		It("sends to every user when no role is given", func() {
			result, err := svc.Broadcast(ctx, notification.BroadcastDTO{Title: "Holiday", Message: "Office closed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RecipientCount).To(Equal(3))
		})

		It("targets a role", func() {
			result, err := svc.Broadcast(ctx, notification.BroadcastDTO{
				Title: "Policy", Message: "Please read the updated policy", Role: userDatamodel.RoleEmployee, Priority: notification.PriorityHigh,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RecipientCount).To(Equal(2))
		})

		It("targets explicit users first", func() {
			result, err := svc.Broadcast(ctx, notification.BroadcastDTO{
				Title: "Meeting", Message: "Team meeting at 10:00", Role: userDatamodel.RoleAdmin, UserIDs: []int64{2},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RecipientCount).To(Equal(1))

			_, total, err := svc.List(ctx, 2, notification.ListFilter{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
		})

		It("validates the payload", func() {
			_, err := svc.Broadcast(ctx, notification.BroadcastDTO{Title: "", Message: "x", Role: "manager"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Subscriber", func() {
		var sub *notification.Subscriber

		BeforeEach(func() {
			sub = notification.NewSubscriber(svc)
		})

		It("warns with high priority on a late clock-in", func() {
			at := time.Date(2024, 3, 11, 8, 15, 0, 0, wib)
			Expect(sub.HandleClockedIn(ctx, events.NewClockedInEvent(10, 2, "late", at, -6.2, 106.8))).To(Succeed())

			list, _, err := svc.List(ctx, 2, notification.ListFilter{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Notifications).To(HaveLen(1))
			n := list.Notifications[0]
			Expect(n.Title).To(Equal("Clock In Late"))
			Expect(n.Priority).To(Equal(notification.PriorityHigh))
			Expect(n.Type).To(Equal(notification.TypeAttendance))
			Expect(n.Message).To(ContainSubstring("08:15"))
		})

		It("confirms an on-time clock-in", func() {
			at := time.Date(2024, 3, 11, 7, 45, 0, 0, wib)
			Expect(sub.HandleClockedIn(ctx, events.NewClockedInEvent(10, 2, "ontime", at, -6.2, 106.8))).To(Succeed())

			list, _, err := svc.List(ctx, 2, notification.ListFilter{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Notifications[0].Title).To(Equal("Clock In Successful"))
			Expect(list.Notifications[0].Priority).To(Equal(notification.PriorityMedium))
		})

		It("includes the formatted duration on clock-out", func() {
			at := time.Date(2024, 3, 11, 17, 30, 0, 0, wib)
			Expect(sub.HandleClockedOut(ctx, events.NewClockedOutEvent(10, 2, at, 570, -6.2, 106.8))).To(Succeed())

			list, _, err := svc.List(ctx, 2, notification.ListFilter{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Notifications[0].Message).To(ContainSubstring("9h 30m"))
		})

		It("is wired to the event bus", func() {
			bus := events.NewEventBus(lg)
			sub.Register(bus)

			at := time.Date(2024, 3, 11, 7, 45, 0, 0, wib)
			Expect(bus.PublishSync(ctx, events.NewClockedInEvent(10, 3, "ontime", at, -6.2, 106.8))).To(Succeed())

			_, total, err := svc.List(ctx, 3, notification.ListFilter{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
		})
	})
})

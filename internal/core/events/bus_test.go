package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/attendance-management/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("delivers published events to every subscriber even after the caller's context is cancelled", func() {
		var calls int32
		bus.Subscribe(events.EventTypeClockedIn, func(ctx context.Context, e events.Event) error {
			defer GinkgoRecover()
			Expect(ctx.Err()).NotTo(HaveOccurred())
			atomic.AddInt32(&calls, 1)
			return nil
		})
		bus.Subscribe(events.EventTypeClockedIn, func(ctx context.Context, e events.Event) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("boom")
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		evt := events.NewClockedInEvent(1, 2, "late", time.Now(), -6.2, 106.8)
		Expect(bus.Publish(ctx, evt)).To(Succeed())

		Expect(bus.Wait(context.Background())).To(Succeed())
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
	})

	It("returns the first handler error from PublishSync", func() {
		bus.Subscribe(events.EventTypeClockedOut, func(ctx context.Context, e events.Event) error {
			return errors.New("failed")
		})

		err := bus.PublishSync(context.Background(), events.NewClockedOutEvent(1, 2, time.Now(), 540, 0, 0))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(events.EventTypeClockedOut))
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.Publish(context.Background(), events.NewClockedOutEvent(1, 2, time.Now(), 0, 0, 0))).To(Succeed())
	})
})

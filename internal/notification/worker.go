package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"

	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/model"
	"faculty-availability-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers status changes to the browsers following a faculty member.
type WorkerPool struct {
	size    int
	jobs    chan hub.Event
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. queueSize bounds the number of
// pending events; Dispatch drops events once it is full.
func NewWorkerPool(size, queueSize int, st store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan hub.Event, queueSize),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned after ctx was cancelled.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendNotificationsForFaculty(ctx, ev)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event without blocking the caller.
func (wp *WorkerPool) Dispatch(ev hub.Event) {
	select {
	case wp.jobs <- ev:
	default:
		log.Printf("Notification queue full; dropping status update for faculty %d", ev.FacultyID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan hub.Event {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForFaculty(ctx context.Context, ev hub.Event) {
	subscriptions, err := wp.store.SubscriptionsForFaculty(ctx, ev.FacultyID)
	if err != nil {
		log.Printf("Error fetching subscriptions for faculty %d: %v", ev.FacultyID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for faculty %d", len(subscriptions), ev.FacultyID)

	label := fmt.Sprintf("Faculty #%d", ev.FacultyID)
	if f, err := wp.store.FacultyByID(ctx, ev.FacultyID); err != nil {
		log.Printf("Error fetching faculty %d: %v", ev.FacultyID, err)
	} else if f.Name != "" {
		label = f.Name
	}

	message := Message(label, ev)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// Message is the notification text shown to followers.
func Message(name string, ev hub.Event) string {
	msg := fmt.Sprintf("%s is now: %s", name, ev.StatusMessage)
	if ev.CustomMessage != "" {
		msg += " (" + ev.CustomMessage + ")"
	}
	if ev.EstimatedDuration > 0 {
		msg += fmt.Sprintf(", back in about %d min", ev.EstimatedDuration)
	}
	return msg
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

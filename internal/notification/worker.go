package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/logger"
	"gorm.io/gorm"

	"matchday-backend/internal/model"
)

// queueDepthPerWorker bounds how many announcements wait per worker.
const queueDepthPerWorker = 16

// Pusher delivers one encoded payload to one browser endpoint.
type Pusher interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type webPusher struct{}

func (webPusher) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Announcement is a message for every subscriber of a group.
type Announcement struct {
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

// WorkerPool fans group announcements out to push subscribers.
type WorkerPool struct {
	size    int
	jobs    chan Announcement
	db      *gorm.DB
	webpush *webpush.Options
	sender  Pusher
}

// NewWorkerPool creates a pool of size workers. Nothing is sent until Start.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Announcement, size*queueDepthPerWorker),
		db:      db,
		webpush: webpushOptions,
		sender:  webPusher{},
	}
}

// Start launches the worker goroutines. They stop with ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.run(ctx, i)
	}
}

func (wp *WorkerPool) run(ctx context.Context, id int) {
	logger.Infof("announcement worker %d started", id)
	defer logger.Infof("announcement worker %d stopped", id)
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-wp.jobs:
			wp.deliver(ctx, a)
		}
	}
}

// Announce queues a message for a group's subscribers. It never blocks; when
// the queue is full the announcement is dropped.
func (wp *WorkerPool) Announce(groupID, message string) {
	select {
	case wp.jobs <- Announcement{GroupID: groupID, Message: message}:
	default:
		logger.Warningf("announcement queue full, dropped message for group %s", groupID)
	}
}

// Jobs exposes the queue to tests.
func (wp *WorkerPool) Jobs() chan Announcement {
	return wp.jobs
}

func (wp *WorkerPool) subscribers(ctx context.Context, groupID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_group_mapping sgm ON sgm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sgm.group_id = ?", groupID).
		Find(&subs).Error
	return subs, err
}

func (wp *WorkerPool) deliver(ctx context.Context, a Announcement) {
	subs, err := wp.subscribers(ctx, a.GroupID)
	if err != nil {
		logger.Errorf("load subscribers of group %s: %v", a.GroupID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(a)
	if err != nil {
		logger.Errorf("encode announcement for group %s: %v", a.GroupID, err)
		return
	}

	logger.Infof("announcing to %d subscribers of group %s", len(subs), a.GroupID)
	for i := range subs {
		wp.push(ctx, &subs[i], payload)
	}
}

func (wp *WorkerPool) push(ctx context.Context, sub *model.PushSubscription, payload []byte) {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256DH, Auth: sub.Auth},
	}

	resp, err := wp.sender.Send(payload, target, wp.webpush)
	if err != nil {
		logger.Errorf("push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusGone {
		return
	}
	// The browser dropped the subscription; forget it and its group links.
	logger.Infof("subscription %s expired, removing", sub.Endpoint)
	if err := wp.db.WithContext(ctx).Select("Groups").Delete(sub).Error; err != nil {
		logger.Errorf("remove expired subscription %s: %v", sub.Endpoint, err)
	}
}

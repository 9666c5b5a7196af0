package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// mockSender records pushes instead of sending them.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

const subscriptionQuery = `SELECT .* FROM "push_subscriptions".*JOIN subscription_group_mapping sgm .*WHERE sgm\.group_id = \$1`

func subscriptionRows(endpoint string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
		AddRow(endpoint, "test_p256dh", "test_auth", time.Now())
}

func emptyResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Announce(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	wp.Announce("tuesday-futsal", "match on 2024-05-14 is open")

	select {
	case a := <-wp.Jobs():
		assert.Equal(t, Announcement{GroupID: "tuesday-futsal", Message: "match on 2024-05-14 is open"}, a)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for announcement")
	}
}

func TestWorkerPool_AnnounceDropsWhenFull(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	for i := 0; i < cap(wp.Jobs())+5; i++ {
		wp.Announce("g", "spam")
	}
	assert.Len(t, wp.Jobs(), cap(wp.Jobs()))
}

func TestWorkerPool_SendsToGroupSubscribers(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})

	sent := make(chan []byte, 1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "https://example.com/push", sub.Endpoint)
			assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
			sent <- payload
			return emptyResponse(http.StatusCreated), nil
		},
	}

	mock.ExpectQuery(subscriptionQuery).
		WithArgs("tuesday-futsal").
		WillReturnRows(subscriptionRows("https://example.com/push"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Announce("tuesday-futsal", "best: ana")

	select {
	case payload := <-sent:
		var got Announcement
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, Announcement{GroupID: "tuesday-futsal", Message: "best: ana"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return emptyResponse(http.StatusGone), nil
		},
	}

	mock.ExpectQuery(subscriptionQuery).
		WithArgs("g").
		WillReturnRows(subscriptionRows("https://example.com/expired"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "subscription_group_mapping"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
		WithArgs("https://example.com/expired").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Announce("g", "voting closed")

	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWorkerPool_NoSubscribers(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Error("nothing should be sent")
			return emptyResponse(http.StatusCreated), nil
		},
	}

	mock.ExpectQuery(subscriptionQuery).
		WithArgs("quiet").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}))

	wp.deliver(context.Background(), Announcement{GroupID: "quiet", Message: "hello"})
	assert.NoError(t, mock.ExpectationsWereMet())
}

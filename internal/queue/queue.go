package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const notificationList = "notification_jobs"

// Notification is a queued email informing a user about grievance activity.
type Notification struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	GrievanceID string `json:"grievanceId,omitempty"`
}

type Queue struct {
	client *redis.Client
}

func New(url string) (*Queue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	return &Queue{client: client}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) PushNotification(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, notificationList, payload).Err()
}

func (q *Queue) PopNotification(ctx context.Context, timeout time.Duration) (Notification, error) {
	var n Notification
	res, err := q.client.BRPop(ctx, timeout, notificationList).Result()
	if err != nil {
		return n, err
	}
	if len(res) < 2 {
		return n, redis.Nil
	}
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return n, err
	}
	return n, nil
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, notificationList).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}

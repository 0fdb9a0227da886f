package controller

import (
	"context"
	"time"

	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is the method set the transport consumes. *Controller implements it.
type Service interface {
	CreateNewUser(ctx context.Context, request *types.RegisterRequest) (*types.User, string, error)
	AuthorizeUser(ctx context.Context, request *types.LoginRequest) (string, error)
	GetFullUser(ctx context.Context, userName string) (*types.FullUser, error)
	UpdateUser(ctx context.Context, userName string, update *types.UserUpdate) (*types.User, error)
	DeleteUser(ctx context.Context, userName string) error
	GetLeaderboard(ctx context.Context) ([]*types.LeaderboardEntry, error)
	AddTask(ctx context.Context, userName string, taskID int) (*types.Task, error)
	CompleteTask(ctx context.Context, userName string, taskID int) (*types.Task, *types.User, error)
	GetTasks(ctx context.Context, userName string) ([]*types.Task, error)
	RemoveTask(ctx context.Context, userName string, taskID int) error
	AddBadge(ctx context.Context, userName string, badgeID int) (*types.CollectedBadge, error)
	GetBadges(ctx context.Context, userName string) ([]*types.BadgeDetails, error)
	Close() error
}

type Middleware func(Service) Service

type Metrics struct {
	RequestCount   *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// NewMetrics registers the controller collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bored",
			Name:      "requests_total",
			Help:      "Number of controller calls by method and outcome.",
		}, []string{"method", "outcome"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bored",
			Name:      "request_duration_seconds",
			Help:      "Controller call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	for _, c := range []prometheus.Collector{m.RequestCount, m.RequestLatency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func InstrumentingMiddleware(m *Metrics) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{m, next}
	}
}

type instrumentingMiddleware struct {
	metrics *Metrics
	next    Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	mw.metrics.RequestCount.WithLabelValues(method, outcome).Inc()
	mw.metrics.RequestLatency.WithLabelValues(method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) CreateNewUser(ctx context.Context, request *types.RegisterRequest) (user *types.User, token string, err error) {
	defer func(begin time.Time) { mw.observe("create_new_user", begin, err) }(time.Now())
	return mw.next.CreateNewUser(ctx, request)
}

func (mw instrumentingMiddleware) AuthorizeUser(ctx context.Context, request *types.LoginRequest) (token string, err error) {
	defer func(begin time.Time) { mw.observe("authorize_user", begin, err) }(time.Now())
	return mw.next.AuthorizeUser(ctx, request)
}

func (mw instrumentingMiddleware) GetFullUser(ctx context.Context, userName string) (user *types.FullUser, err error) {
	defer func(begin time.Time) { mw.observe("get_full_user", begin, err) }(time.Now())
	return mw.next.GetFullUser(ctx, userName)
}

func (mw instrumentingMiddleware) UpdateUser(ctx context.Context, userName string, update *types.UserUpdate) (user *types.User, err error) {
	defer func(begin time.Time) { mw.observe("update_user", begin, err) }(time.Now())
	return mw.next.UpdateUser(ctx, userName, update)
}

func (mw instrumentingMiddleware) DeleteUser(ctx context.Context, userName string) (err error) {
	defer func(begin time.Time) { mw.observe("delete_user", begin, err) }(time.Now())
	return mw.next.DeleteUser(ctx, userName)
}

func (mw instrumentingMiddleware) GetLeaderboard(ctx context.Context) (leaderboard []*types.LeaderboardEntry, err error) {
	defer func(begin time.Time) { mw.observe("get_leaderboard", begin, err) }(time.Now())
	return mw.next.GetLeaderboard(ctx)
}

func (mw instrumentingMiddleware) AddTask(ctx context.Context, userName string, taskID int) (task *types.Task, err error) {
	defer func(begin time.Time) { mw.observe("add_task", begin, err) }(time.Now())
	return mw.next.AddTask(ctx, userName, taskID)
}

func (mw instrumentingMiddleware) CompleteTask(ctx context.Context, userName string, taskID int) (task *types.Task, user *types.User, err error) {
	defer func(begin time.Time) { mw.observe("complete_task", begin, err) }(time.Now())
	return mw.next.CompleteTask(ctx, userName, taskID)
}

func (mw instrumentingMiddleware) GetTasks(ctx context.Context, userName string) (tasks []*types.Task, err error) {
	defer func(begin time.Time) { mw.observe("get_tasks", begin, err) }(time.Now())
	return mw.next.GetTasks(ctx, userName)
}

func (mw instrumentingMiddleware) RemoveTask(ctx context.Context, userName string, taskID int) (err error) {
	defer func(begin time.Time) { mw.observe("remove_task", begin, err) }(time.Now())
	return mw.next.RemoveTask(ctx, userName, taskID)
}

func (mw instrumentingMiddleware) AddBadge(ctx context.Context, userName string, badgeID int) (badge *types.CollectedBadge, err error) {
	defer func(begin time.Time) { mw.observe("add_badge", begin, err) }(time.Now())
	return mw.next.AddBadge(ctx, userName, badgeID)
}

func (mw instrumentingMiddleware) GetBadges(ctx context.Context, userName string) (badges []*types.BadgeDetails, err error) {
	defer func(begin time.Time) { mw.observe("get_badges", begin, err) }(time.Now())
	return mw.next.GetBadges(ctx, userName)
}

func (mw instrumentingMiddleware) Close() error {
	return mw.next.Close()
}

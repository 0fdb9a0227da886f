// Package dbtest provides an in-memory store with the same contract and
// sentinel errors as the Postgres database, for tests that should not need a
// running server.
package dbtest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SakuraBurst/bored/internal/bored/database"
	"github.com/SakuraBurst/bored/internal/bored/types"
)

// Catalog mirrors the badges seeded by the initial migration.
var Catalog = []types.BadgeDetails{
	{BadgeID: 1, UnlockNum: 1, Message: "First one done! You are officially less bored."},
	{BadgeID: 2, UnlockNum: 5, Message: "Five activities completed. Keep it going!"},
	{BadgeID: 3, UnlockNum: 10, Message: "Ten activities. Boredom does not stand a chance."},
	{BadgeID: 4, UnlockNum: 25, Message: "Twenty-five activities completed!"},
	{BadgeID: 5, UnlockNum: 50, Message: "Fifty activities. You are on a roll."},
	{BadgeID: 6, UnlockNum: 100, Message: "One hundred activities completed!"},
	{BadgeID: 7, UnlockNum: 250, Message: "Two hundred fifty activities. Impressive."},
	{BadgeID: 8, UnlockNum: 500, Message: "Five hundred activities. Are you ever bored?"},
	{BadgeID: 9, UnlockNum: 1000, Message: "One thousand activities. Boredom is a distant memory."},
}

type taskKey struct {
	userName string
	taskID   int
}

type badgeKey struct {
	userName string
	badgeID  int
}

// Memory clones every username it keeps as a key, since callers may pass
// strings that alias a reused request buffer.
type Memory struct {
	mu          sync.Mutex
	users       map[string]types.User
	tasks       map[taskKey]bool
	badges      map[badgeKey]int
	catalog     map[int]types.BadgeDetails
	nextBadgeID int
}

func NewMemory() *Memory {
	m := &Memory{
		users:   make(map[string]types.User),
		tasks:   make(map[taskKey]bool),
		badges:  make(map[badgeKey]int),
		catalog: make(map[int]types.BadgeDetails),
	}
	for _, b := range Catalog {
		m.catalog[b.BadgeID] = b
	}
	return m
}

// public returns a copy without the password hash.
func public(u types.User) *types.User {
	u.Password = ""
	return &u
}

func (m *Memory) CreateNewUser(_ context.Context, user *types.User) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.UserName]; ok {
		return nil, database.ErrUserAlreadyExist
	}
	stored := *user
	stored.UserName = strings.Clone(user.UserName)
	m.users[stored.UserName] = stored
	return public(stored), nil
}

func (m *Memory) GetUser(_ context.Context, userName string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userName]
	if !ok {
		return nil, database.ErrUserNotExist
	}
	return public(u), nil
}

func (m *Memory) GetUserByUserName(_ context.Context, userName string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userName]
	if !ok {
		return nil, database.ErrUserNotExist
	}
	return &u, nil
}

func (m *Memory) UpdateUser(_ context.Context, userName string, update *types.UserUpdate) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userName]
	if !ok {
		return nil, database.ErrUserNotExist
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	if update.CompletedTasks != nil {
		u.CompletedTasks = *update.CompletedTasks
	}
	if update.Avatar.Set {
		u.Avatar = nil
		if update.Avatar.Value != nil {
			avatar := *update.Avatar.Value
			u.Avatar = &avatar
		}
	}
	m.users[u.UserName] = u
	return public(u), nil
}

func (m *Memory) DeleteUser(_ context.Context, userName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userName]; !ok {
		return database.ErrUserNotExist
	}
	delete(m.users, userName)
	for k := range m.tasks {
		if k.userName == userName {
			delete(m.tasks, k)
		}
	}
	for k := range m.badges {
		if k.userName == userName {
			delete(m.badges, k)
		}
	}
	return nil
}

func (m *Memory) GetLeaderboard(_ context.Context) ([]*types.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*types.LeaderboardEntry, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, &types.LeaderboardEntry{UserName: u.UserName, CompletedTasks: u.CompletedTasks, Avatar: u.Avatar})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CompletedTasks != result[j].CompletedTasks {
			return result[i].CompletedTasks > result[j].CompletedTasks
		}
		return result[i].UserName < result[j].UserName
	})
	return result, nil
}

func (m *Memory) AddTask(_ context.Context, userName string, taskID int) (*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userName]; !ok {
		return nil, database.ErrUserNotExist
	}
	key := taskKey{strings.Clone(userName), taskID}
	if _, ok := m.tasks[key]; ok {
		return nil, database.ErrTaskAlreadyExist
	}
	m.tasks[key] = false
	return &types.Task{TaskID: taskID, UserName: key.userName}, nil
}

func (m *Memory) MarkTaskComplete(_ context.Context, userName string, taskID int) (*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markComplete(userName, taskID)
}

func (m *Memory) markComplete(userName string, taskID int) (*types.Task, error) {
	if _, ok := m.users[userName]; !ok {
		return nil, database.ErrUserNotExist
	}
	key := taskKey{userName, taskID}
	if _, ok := m.tasks[key]; !ok {
		return nil, database.ErrTaskNotExist
	}
	m.tasks[key] = true
	return &types.Task{TaskID: taskID, UserName: userName, Completed: true}, nil
}

func (m *Memory) CompleteTask(_ context.Context, userName string, taskID int) (*types.Task, *types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasCompleted := m.tasks[taskKey{userName, taskID}]
	task, err := m.markComplete(userName, taskID)
	if err != nil {
		return nil, nil, err
	}
	u := m.users[userName]
	if !wasCompleted {
		u.CompletedTasks++
		m.users[userName] = u
	}
	return task, public(u), nil
}

func (m *Memory) GetTasks(_ context.Context, userName string) ([]*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userName]; !ok {
		return nil, database.ErrUserNotExist
	}
	result := make([]*types.Task, 0)
	for k, completed := range m.tasks {
		if k.userName == userName {
			result = append(result, &types.Task{TaskID: k.taskID, UserName: userName, Completed: completed})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TaskID < result[j].TaskID })
	return result, nil
}

func (m *Memory) RemoveTask(_ context.Context, userName string, taskID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userName]; !ok {
		return database.ErrUserNotExist
	}
	key := taskKey{userName, taskID}
	if _, ok := m.tasks[key]; !ok {
		return database.ErrTaskNotExist
	}
	delete(m.tasks, key)
	return nil
}

func (m *Memory) AddBadge(_ context.Context, userName string, badgeID int) (*types.CollectedBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := badgeKey{userName, badgeID}
	if _, ok := m.badges[key]; ok {
		return nil, database.ErrBadgeAlreadyCollected
	}
	if _, ok := m.users[userName]; !ok {
		return nil, database.ErrUserOrBadgeNotExist
	}
	if _, ok := m.catalog[badgeID]; !ok {
		return nil, database.ErrUserOrBadgeNotExist
	}
	key.userName = strings.Clone(userName)
	m.nextBadgeID++
	m.badges[key] = m.nextBadgeID
	return &types.CollectedBadge{ID: m.nextBadgeID, BadgeID: badgeID, UserName: key.userName}, nil
}

func (m *Memory) GetBadges(_ context.Context, userName string) ([]*types.BadgeDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userName]; !ok {
		return nil, database.ErrUserNotExist
	}
	result := make([]*types.BadgeDetails, 0)
	for k := range m.badges {
		if k.userName != userName {
			continue
		}
		if b, ok := m.catalog[k.badgeID]; ok {
			result = append(result, &b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BadgeID < result[j].BadgeID })
	return result, nil
}

func (m *Memory) Close() error {
	return nil
}

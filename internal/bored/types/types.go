package types

import (
	"bytes"
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// User is the public profile. Password carries the bcrypt hash and never
// leaves the process.
type User struct {
	UserName       string  `json:"username"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	CompletedTasks int     `json:"completedTasks"`
	Avatar         *string `json:"avatar"`
	Password       string  `json:"-"`
}

// FullUser is the profile with everything the user tracks and has unlocked.
type FullUser struct {
	User
	Activities []*Task         `json:"activities"`
	Badges     []*BadgeDetails `json:"badges"`
}

type LeaderboardEntry struct {
	UserName       string  `json:"username" db:"username"`
	CompletedTasks int     `json:"completedTasks" db:"completed_tasks"`
	Avatar         *string `json:"avatar" db:"avatar"`
}

type Task struct {
	TaskID    int    `json:"taskID" db:"task_id"`
	UserName  string `json:"username" db:"username"`
	Completed bool   `json:"completed" db:"completed"`
}

// CollectedBadge is the record proving a user unlocked a catalog badge.
type CollectedBadge struct {
	ID       int    `json:"id"`
	BadgeID  int    `json:"badgeId"`
	UserName string `json:"username"`
}

// BadgeDetails is a collected badge joined with its catalog entry.
type BadgeDetails struct {
	BadgeID   int    `json:"badgeId" db:"badge_id"`
	UnlockNum int    `json:"unlockNum" db:"unlock_num"`
	Message   string `json:"message" db:"message"`
}

type RegisterRequest struct {
	UserName       string  `json:"username" validate:"required,min=1,max=30"`
	Password       string  `json:"password" validate:"required,min=5,max=64"`
	FirstName      string  `json:"firstName" validate:"required,min=1,max=30"`
	LastName       string  `json:"lastName" validate:"required,min=1,max=30"`
	Email          string  `json:"email" validate:"required,email,max=60"`
	CompletedTasks int     `json:"completedTasks" validate:"min=0"`
	Avatar         *string `json:"avatar" validate:"omitempty,max=2048"`
}

type LoginRequest struct {
	UserName string `json:"username" validate:"required,min=1,max=30"`
	Password string `json:"password" validate:"required"`
}

// UserUpdate is a partial profile update: a nil field is left untouched.
// Avatar is nullable, so it tells an absent key from an explicit null.
type UserUpdate struct {
	FirstName      *string        `json:"firstName" validate:"omitempty,min=1,max=30"`
	LastName       *string        `json:"lastName" validate:"omitempty,min=1,max=30"`
	Email          *string        `json:"email" validate:"omitempty,email,max=60"`
	Password       *string        `json:"password" validate:"omitempty,min=5,max=64"`
	CompletedTasks *int           `json:"completedTasks" validate:"omitempty,min=0"`
	Avatar         NullableString `json:"avatar" validate:"omitempty,max=2048"`
}

func (u *UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Password == nil && u.CompletedTasks == nil && !u.Avatar.Set
}

// NullableString is set once its key appears in the JSON body. A null value
// leaves Value nil with Set true.
type NullableString struct {
	Set   bool
	Value *string
}

func NewNullableString(value string) NullableString {
	return NullableString{Set: true, Value: &value}
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// Claims is the bearer token payload. The username is the only identity it carries.
type Claims struct {
	UserName string `json:"username"`
	jwt.RegisteredClaims
}

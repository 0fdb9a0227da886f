package controller

import (
	"context"
	"time"

	"github.com/SakuraBurst/bored/internal/bored/config"
	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredential = errors.New("incorrect password")

type userDatabase interface {
	CreateNewUser(ctx context.Context, user *types.User) (*types.User, error)
	GetUser(ctx context.Context, userName string) (*types.User, error)
	GetUserByUserName(ctx context.Context, userName string) (*types.User, error)
	UpdateUser(ctx context.Context, userName string, update *types.UserUpdate) (*types.User, error)
	DeleteUser(ctx context.Context, userName string) error
	GetLeaderboard(ctx context.Context) ([]*types.LeaderboardEntry, error)
}

type taskDatabase interface {
	AddTask(ctx context.Context, userName string, taskID int) (*types.Task, error)
	MarkTaskComplete(ctx context.Context, userName string, taskID int) (*types.Task, error)
	GetTasks(ctx context.Context, userName string) ([]*types.Task, error)
	RemoveTask(ctx context.Context, userName string, taskID int) error
}

type taskToUserDatabase interface {
	CompleteTask(ctx context.Context, userName string, taskID int) (*types.Task, *types.User, error)
}

type badgeDatabase interface {
	AddBadge(ctx context.Context, userName string, badgeID int) (*types.CollectedBadge, error)
	GetBadges(ctx context.Context, userName string) ([]*types.BadgeDetails, error)
}

type Controller struct {
	userDatabase       userDatabase
	taskDataBase       taskDatabase
	taskToUserDatabase taskToUserDatabase
	badgeDatabase      badgeDatabase
	jwtSecret          []byte
	tokenTTL           time.Duration
	bcryptCost         int
	databaseClose      func() error
}

func NewController(cfg *config.Config, u userDatabase, t taskDatabase, ttu taskToUserDatabase, b badgeDatabase, dbClose func() error) *Controller {
	return &Controller{
		userDatabase:       u,
		taskDataBase:       t,
		taskToUserDatabase: ttu,
		badgeDatabase:      b,
		jwtSecret:          []byte(cfg.JWTSecret),
		tokenTTL:           cfg.TokenTTL,
		bcryptCost:         cfg.BcryptCost,
		databaseClose:      dbClose,
	}
}

// CreateNewUser registers the user and returns the public profile with a
// fresh token.
func (c *Controller) CreateNewUser(ctx context.Context, request *types.RegisterRequest) (*types.User, string, error) {
	if err := validateStruct(request); err != nil {
		return nil, "", err
	}
	hashedPass, err := c.cryptPassword([]byte(request.Password))
	if err != nil {
		return nil, "", errors.Wrap(err, "cryptPassword failed: ")
	}
	user, err := c.userDatabase.CreateNewUser(ctx, &types.User{
		UserName:       request.UserName,
		FirstName:      request.FirstName,
		LastName:       request.LastName,
		Email:          request.Email,
		CompletedTasks: request.CompletedTasks,
		Avatar:         request.Avatar,
		Password:       string(hashedPass),
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "userDatabase.CreateNewUser failed: ")
	}
	token, err := CreateJWT(c.jwtSecret, user.UserName, c.tokenTTL)
	if err != nil {
		return nil, "", errors.Wrap(err, "createJWT failed: ")
	}
	return user, token, nil
}

func (c *Controller) AuthorizeUser(ctx context.Context, request *types.LoginRequest) (string, error) {
	if err := validateStruct(request); err != nil {
		return "", err
	}
	userName, err := c.VerifyUser(ctx, request.UserName, request.Password)
	if err != nil {
		return "", err
	}
	return CreateJWT(c.jwtSecret, userName, c.tokenTTL)
}

// VerifyUser checks the password and returns only the username.
func (c *Controller) VerifyUser(ctx context.Context, userName, password string) (string, error) {
	foundUser, err := c.userDatabase.GetUserByUserName(ctx, userName)
	if err != nil {
		return "", errors.Wrap(err, "userDatabase.GetUserByUserName failed: ")
	}
	err = bcrypt.CompareHashAndPassword([]byte(foundUser.Password), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return "", ErrInvalidCredential
	}
	if err != nil {
		return "", errors.Wrap(err, "bcrypt.CompareHashAndPassword failed: ")
	}
	return foundUser.UserName, nil
}

func (c *Controller) GetUser(ctx context.Context, userName string) (*types.User, error) {
	user, err := c.userDatabase.GetUser(ctx, userName)
	if err != nil {
		return nil, errors.Wrap(err, "userDatabase.GetUser failed: ")
	}
	return user, nil
}

// GetFullUser reads the profile, tasks and badges one after another; they are
// not a consistent snapshot.
func (c *Controller) GetFullUser(ctx context.Context, userName string) (*types.FullUser, error) {
	user, err := c.GetUser(ctx, userName)
	if err != nil {
		return nil, err
	}
	tasks, err := c.GetTasks(ctx, userName)
	if err != nil {
		return nil, err
	}
	badges, err := c.GetBadges(ctx, userName)
	if err != nil {
		return nil, err
	}
	return &types.FullUser{User: *user, Activities: tasks, Badges: badges}, nil
}

func (c *Controller) UpdateUser(ctx context.Context, userName string, update *types.UserUpdate) (*types.User, error) {
	if err := validateStruct(update); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, errors.Wrap(ErrInvalidInput, "no fields to update")
	}
	if update.Password != nil {
		hashedPass, err := c.cryptPassword([]byte(*update.Password))
		if err != nil {
			return nil, errors.Wrap(err, "cryptPassword failed: ")
		}
		hashed := string(hashedPass)
		withHash := *update
		withHash.Password = &hashed
		update = &withHash
	}
	user, err := c.userDatabase.UpdateUser(ctx, userName, update)
	if err != nil {
		return nil, errors.Wrap(err, "userDatabase.UpdateUser failed: ")
	}
	return user, nil
}

func (c *Controller) DeleteUser(ctx context.Context, userName string) error {
	if err := c.userDatabase.DeleteUser(ctx, userName); err != nil {
		return errors.Wrap(err, "userDatabase.DeleteUser failed: ")
	}
	return nil
}

func (c *Controller) GetLeaderboard(ctx context.Context) ([]*types.LeaderboardEntry, error) {
	leaderboard, err := c.userDatabase.GetLeaderboard(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "userDatabase.GetLeaderboard failed: ")
	}
	return leaderboard, nil
}

func (c *Controller) AddTask(ctx context.Context, userName string, taskID int) (*types.Task, error) {
	task, err := c.taskDataBase.AddTask(ctx, userName, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "taskDataBase.AddTask failed: ")
	}
	return task, nil
}

// MarkTaskComplete flips the task without touching the owner's counter.
func (c *Controller) MarkTaskComplete(ctx context.Context, userName string, taskID int) (*types.Task, error) {
	task, err := c.taskDataBase.MarkTaskComplete(ctx, userName, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "taskDataBase.MarkTaskComplete failed: ")
	}
	return task, nil
}

// CompleteTask completes the task and returns it with the owner's updated
// profile.
func (c *Controller) CompleteTask(ctx context.Context, userName string, taskID int) (*types.Task, *types.User, error) {
	task, user, err := c.taskToUserDatabase.CompleteTask(ctx, userName, taskID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "taskToUserDatabase.CompleteTask failed: ")
	}
	return task, user, nil
}

func (c *Controller) GetTasks(ctx context.Context, userName string) ([]*types.Task, error) {
	tasks, err := c.taskDataBase.GetTasks(ctx, userName)
	if err != nil {
		return nil, errors.Wrap(err, "taskDataBase.GetTasks failed: ")
	}
	return tasks, nil
}

func (c *Controller) RemoveTask(ctx context.Context, userName string, taskID int) error {
	if err := c.taskDataBase.RemoveTask(ctx, userName, taskID); err != nil {
		return errors.Wrap(err, "taskDataBase.RemoveTask failed: ")
	}
	return nil
}

func (c *Controller) AddBadge(ctx context.Context, userName string, badgeID int) (*types.CollectedBadge, error) {
	badge, err := c.badgeDatabase.AddBadge(ctx, userName, badgeID)
	if err != nil {
		return nil, errors.Wrap(err, "badgeDatabase.AddBadge failed: ")
	}
	return badge, nil
}

func (c *Controller) GetBadges(ctx context.Context, userName string) ([]*types.BadgeDetails, error) {
	badges, err := c.badgeDatabase.GetBadges(ctx, userName)
	if err != nil {
		return nil, errors.Wrap(err, "badgeDatabase.GetBadges failed: ")
	}
	return badges, nil
}

func (c *Controller) Close() error {
	return c.databaseClose()
}

// CreateJWT signs a token carrying userName. A zero ttl means the token
// never expires.
func CreateJWT(secret []byte, userName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Controller) cryptPassword(pass []byte) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword(pass, c.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "bcrypt.GenerateFromPassword failed: ")
	}
	return hash, nil
}

package router

import (
	"fmt"
	"math"
	"net/http"

	"github.com/SakuraBurst/bored/internal/bored/config"
	"github.com/SakuraBurst/bored/internal/bored/controller"
	"github.com/SakuraBurst/bored/internal/bored/database"
	"github.com/SakuraBurst/bored/internal/bored/router/middleware"
	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HttpRouter struct {
	service controller.Service
	*fiber.App
	appLogger *zap.Logger
	httpPort  string
}

func (r *HttpRouter) Run() error {
	return r.App.Listen(":" + r.httpPort)
}

func (r *HttpRouter) Close() error {
	if err := r.service.Close(); err != nil {
		r.appLogger.Error("service.Close failed: ", zap.Error(err))
	}
	return r.App.Shutdown()
}

func (r *HttpRouter) Register(ctx *fiber.Ctx) error {
	request := &types.RegisterRequest{}
	if err := ctx.BodyParser(request); err != nil {
		return r.fail(ctx, "ctx.BodyParser", errors.Wrap(controller.ErrInvalidInput, err.Error()))
	}
	user, token, err := r.service.CreateNewUser(ctx.Context(), request)
	if err != nil {
		return r.fail(ctx, "service.CreateNewUser", err)
	}
	ctx.Status(http.StatusCreated)
	return ctx.JSON(fiber.Map{"newUser": user, "token": token})
}

func (r *HttpRouter) Token(ctx *fiber.Ctx) error {
	request := &types.LoginRequest{}
	if err := ctx.BodyParser(request); err != nil {
		return r.fail(ctx, "ctx.BodyParser", errors.Wrap(controller.ErrInvalidInput, err.Error()))
	}
	token, err := r.service.AuthorizeUser(ctx.Context(), request)
	if err != nil {
		return r.fail(ctx, "service.AuthorizeUser", err)
	}
	return ctx.JSON(fiber.Map{"token": token})
}

func (r *HttpRouter) GetUser(ctx *fiber.Ctx) error {
	user, err := r.service.GetFullUser(ctx.Context(), ctx.Params("username"))
	if err != nil {
		return r.fail(ctx, "service.GetFullUser", err)
	}
	return ctx.JSON(fiber.Map{"user": user})
}

func (r *HttpRouter) UpdateUser(ctx *fiber.Ctx) error {
	request := &types.UserUpdate{}
	if err := ctx.BodyParser(request); err != nil {
		return r.fail(ctx, "ctx.BodyParser", errors.Wrap(controller.ErrInvalidInput, err.Error()))
	}
	user, err := r.service.UpdateUser(ctx.Context(), ctx.Params("username"), request)
	if err != nil {
		return r.fail(ctx, "service.UpdateUser", err)
	}
	return ctx.JSON(fiber.Map{"user": user})
}

func (r *HttpRouter) DeleteUser(ctx *fiber.Ctx) error {
	userName := ctx.Params("username")
	if err := r.service.DeleteUser(ctx.Context(), userName); err != nil {
		return r.fail(ctx, "service.DeleteUser", err)
	}
	return ctx.JSON(fiber.Map{"deleted": userName})
}

func (r *HttpRouter) GetLeaderboard(ctx *fiber.Ctx) error {
	leaderboard, err := r.service.GetLeaderboard(ctx.Context())
	if err != nil {
		return r.fail(ctx, "service.GetLeaderboard", err)
	}
	return ctx.JSON(fiber.Map{"leaderboard": leaderboard})
}

func (r *HttpRouter) AddTask(ctx *fiber.Ctx) error {
	taskID, err := intParam(ctx, "key")
	if err != nil {
		return r.fail(ctx, "intParam", err)
	}
	task, err := r.service.AddTask(ctx.Context(), ctx.Params("username"), taskID)
	if err != nil {
		return r.fail(ctx, "service.AddTask", err)
	}
	ctx.Status(http.StatusCreated)
	return ctx.JSON(fiber.Map{"newTask": task})
}

func (r *HttpRouter) CompleteTask(ctx *fiber.Ctx) error {
	taskID, err := intParam(ctx, "key")
	if err != nil {
		return r.fail(ctx, "intParam", err)
	}
	task, user, err := r.service.CompleteTask(ctx.Context(), ctx.Params("username"), taskID)
	if err != nil {
		return r.fail(ctx, "service.CompleteTask", err)
	}
	return ctx.JSON(fiber.Map{"task": task, "updatedUser": user})
}

func (r *HttpRouter) GetTasks(ctx *fiber.Ctx) error {
	tasks, err := r.service.GetTasks(ctx.Context(), ctx.Params("username"))
	if err != nil {
		return r.fail(ctx, "service.GetTasks", err)
	}
	return ctx.JSON(fiber.Map{"tasks": tasks})
}

func (r *HttpRouter) RemoveTask(ctx *fiber.Ctx) error {
	taskID, err := intParam(ctx, "key")
	if err != nil {
		return r.fail(ctx, "intParam", err)
	}
	userName := ctx.Params("username")
	if err := r.service.RemoveTask(ctx.Context(), userName, taskID); err != nil {
		return r.fail(ctx, "service.RemoveTask", err)
	}
	return ctx.JSON(fiber.Map{"deleted": fmt.Sprintf("%d from %s", taskID, userName)})
}

func (r *HttpRouter) AddBadge(ctx *fiber.Ctx) error {
	badgeID, err := intParam(ctx, "badgeId")
	if err != nil {
		return r.fail(ctx, "intParam", err)
	}
	badge, err := r.service.AddBadge(ctx.Context(), ctx.Params("username"), badgeID)
	if err != nil {
		return r.fail(ctx, "service.AddBadge", err)
	}
	ctx.Status(http.StatusCreated)
	return ctx.JSON(fiber.Map{"newBadge": badge})
}

func (r *HttpRouter) GetBadges(ctx *fiber.Ctx) error {
	badges, err := r.service.GetBadges(ctx.Context(), ctx.Params("username"))
	if err != nil {
		return r.fail(ctx, "service.GetBadges", err)
	}
	return ctx.JSON(fiber.Map{"badges": badges})
}

func intParam(ctx *fiber.Ctx, name string) (int, error) {
	value, err := ctx.ParamsInt(name)
	if err != nil || value < math.MinInt32 || value > math.MaxInt32 {
		return 0, errors.Wrap(controller.ErrInvalidInput, name+" must be a 32-bit integer")
	}
	return value, nil
}

// fail logs err and writes the error envelope.
func (r *HttpRouter) fail(ctx *fiber.Ctx, op string, err error) error {
	status, message := errorStatus(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("request_id", ctx.GetRespHeader(fiber.HeaderXRequestID)),
	}
	if status >= http.StatusInternalServerError {
		r.appLogger.Error(op+" failed: ", fields...)
	} else {
		r.appLogger.Info(op+" failed: ", fields...)
	}
	ctx.Status(status)
	return ctx.JSON(fiber.Map{"status": "error", "message": message})
}

// errorHandler catches what handlers do not answer themselves: the ownership
// gate, unmatched routes and recovered panics.
func (r *HttpRouter) errorHandler(ctx *fiber.Ctx, err error) error {
	return r.fail(ctx, ctx.Method()+" "+ctx.Path(), err)
}

// errorStatus maps an error to its status code and client message. Unknown
// errors become a 500 echoing the raw message.
func errorStatus(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized, rootMessage(err)
	case errors.Is(err, middleware.ErrNotOwner):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, controller.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, controller.ErrInvalidCredential):
		return http.StatusBadRequest, rootMessage(err)
	case database.IsConflict(err):
		return http.StatusBadRequest, rootMessage(err)
	case database.IsNotFound(err):
		return http.StatusNotFound, rootMessage(err)
	case errors.As(err, &fiberErr):
		if fiberErr.Code == http.StatusNotFound {
			return fiberErr.Code, http.StatusText(http.StatusNotFound)
		}
		return fiberErr.Code, fiberErr.Message
	}
	return http.StatusInternalServerError, err.Error()
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func CreateRouter(s controller.Service, cfg *config.Config, logger *zap.Logger, gatherer prometheus.Gatherer) *HttpRouter {
	appLogger := logger.Named("router")
	r := &HttpRouter{service: s, appLogger: appLogger, httpPort: cfg.HttpPort}
	// params and bodies outlive the request in the store, so fiber must not
	// hand out views into its reused buffers
	app := fiber.New(fiber.Config{ErrorHandler: r.errorHandler, Immutable: true})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.Authenticate([]byte(cfg.JWTSecret)))
	r.App = app

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	owner := middleware.OwnerOnly()

	users := app.Group("/users")
	users.Post("/register", r.Register)
	users.Post("/token", r.Token)
	users.Get("/:username", r.GetUser)
	users.Patch("/:username", owner, r.UpdateUser)
	users.Delete("/:username", owner, r.DeleteUser)

	app.Get("/leaderboard", r.GetLeaderboard)

	tasks := app.Group("/tasks")
	tasks.Get("/:username", r.GetTasks)
	tasks.Post("/:username/:key", owner, r.AddTask)
	tasks.Patch("/:username/:key", owner, r.CompleteTask)
	tasks.Delete("/:username/:key", owner, r.RemoveTask)

	badges := app.Group("/collectedBadges")
	badges.Get("/:username", r.GetBadges)
	badges.Post("/:username/:badgeId", owner, r.AddBadge)
	return r
}

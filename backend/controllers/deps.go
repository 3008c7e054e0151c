package controllers

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/config"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/middleware"
	"github.com/ailms/lms/backend/policy"
	"github.com/ailms/lms/backend/services"
	"github.com/ailms/lms/backend/storage"
	"github.com/ailms/lms/backend/utils"
)

// Deps are the long-lived clients shared by every controller.
type Deps struct {
	DB          *gorm.DB
	Cfg         *config.Config
	Cache       *cache.Accessor
	Events      events.Publisher
	Files       storage.FileStore
	Recommender services.Recommender
	Quizzes     services.QuizGenerator
	Logger      zerolog.Logger
}

// errSideEffect marks a cache or bus failure the fail policy turned into a 500.
var errSideEffect = errors.New("side effect failed")

func actorOf(c *fiber.Ctx) policy.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

// fail maps err to a response. *fiber.Error carries its own status and message;
// anything else is logged and answered with a generic 500.
func (d *Deps) fail(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.Error(c, fe.Code, fe.Message)
	}
	var ve *validationError
	if errors.As(err, &ve) {
		return utils.Error(c, fiber.StatusBadRequest, ve.msg, ve.fields)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.Conflict(c, "Resource already exists")
	}
	if !errors.Is(err, errSideEffect) {
		d.Logger.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return utils.InternalServerError(c)
}

func notFound(msg string) error   { return fiber.NewError(fiber.StatusNotFound, msg) }
func forbidden(msg string) error  { return fiber.NewError(fiber.StatusForbidden, msg) }
func badRequest(msg string) error { return fiber.NewError(fiber.StatusBadRequest, msg) }
func conflict(msg string) error   { return fiber.NewError(fiber.StatusConflict, msg) }

// lookup turns a missing record into a 404 with msg.
func lookup(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(msg)
	}
	return err
}

// serveCached answers from key when present; otherwise it loads, stores and sends the
// same bytes, so a later hit is byte-identical to the first response. A []byte result
// is taken as an already encoded document.
func (d *Deps) serveCached(c *fiber.Ctx, key string, ttl int, load func() (interface{}, error)) error {
	ctx := c.UserContext()
	if v, ok, err := d.Cache.Get(ctx, key); err != nil {
		d.Logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
	} else if ok {
		return utils.RawJSON(c, v.Raw())
	}

	data, err := load()
	if err != nil {
		return d.fail(c, err)
	}
	body, raw := data.([]byte)
	if !raw {
		if body, err = json.Marshal(data); err != nil {
			return d.fail(c, err)
		}
	}
	if err := d.Cache.Set(ctx, key, body, ttl); err != nil {
		d.Logger.Warn().Err(err).Str("key", key).Msg("cache populate failed")
	}
	return utils.RawJSON(c, body)
}

// invalidate drops keys after a committed write. The error is non-nil only under the fail policy.
func (d *Deps) invalidate(c *fiber.Ctx, keys ...string) error {
	if err := d.Cache.Delete(c.UserContext(), keys...); err != nil {
		return d.sideEffect(d.Cfg.CacheFailurePolicy, err, "cache invalidation failed", "keys", keys)
	}
	return nil
}

// invalidateCourseLists drops every cached course list.
func (d *Deps) invalidateCourseLists(c *fiber.Ctx) error {
	if err := d.Cache.DeleteByPrefix(c.UserContext(), cache.CoursesListPrefix); err != nil {
		return d.sideEffect(d.Cfg.CacheFailurePolicy, err, "cache invalidation failed", "keys", []string{cache.CoursesListPrefix + "*"})
	}
	return nil
}

// emit publishes e after a committed write. The error is non-nil only under the fail policy.
func (d *Deps) emit(c *fiber.Ctx, e events.Event) error {
	if err := d.Events.Publish(c.UserContext(), e); err != nil {
		return d.sideEffect(d.Cfg.EventFailurePolicy, err, "event publish failed", "event", []string{e.Type})
	}
	return nil
}

func (d *Deps) sideEffect(policyName string, err error, msg, field string, values []string) error {
	d.Logger.Warn().Err(err).Strs(field, values).Str("policy", policyName).Msg(msg)
	if policyName == config.PolicyFail {
		return errSideEffect
	}
	return nil
}

// afterWrite runs the side effects of a committed write in order and stops at the first
// one the failure policy refuses to swallow.
func afterWrite(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// parseBody decodes the request body into dst and validates it.
func parseBody(c *fiber.Ctx, dst interface{}, msg string) error {
	if err := c.BodyParser(dst); err != nil {
		return badRequest("Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(dst); errs != nil {
		return &validationError{msg: msg, fields: errs}
	}
	return nil
}

type validationError struct {
	msg    string
	fields map[string]string
}

func (e *validationError) Error() string { return e.msg }

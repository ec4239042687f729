package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"procurement/internal/cache"
	"procurement/internal/events"
	"procurement/internal/lock"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RoleRequestor = "requestor"
	RoleApprover  = "approver"
	RoleAdmin     = "admin"
)

// Scope carries the caller's organization and identity into every operation.
type Scope struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           string
}

func (s Scope) validate() error {
	if s.OrganizationID == uuid.Nil {
		return apperror.Validation("organization is required")
	}
	return nil
}

func (s Scope) IsApprover() bool {
	return s.Role == RoleApprover || s.Role == RoleAdmin
}

func (s Scope) userRef() *uuid.UUID {
	if s.UserID == uuid.Nil {
		return nil
	}
	id := s.UserID
	return &id
}

// Infra bundles the collaborators shared by the mutating services.
type Infra struct {
	TxManager repository.TransactionManager
	Locker    lock.Locker
	Cache     cache.ListingCache
	Publisher events.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func (i Infra) withDefaults() Infra {
	if i.Locker == nil {
		i.Locker = lock.NewLocalLocker()
	}
	if i.Cache == nil {
		i.Cache = cache.NewMemoryCache()
	}
	if i.Publisher == nil {
		i.Publisher = events.Nop()
	}
	if i.Logger == nil {
		i.Logger = zap.NewNop()
	}
	if i.Now == nil {
		i.Now = time.Now
	}
	return i
}

// changed runs after a successful commit. Failures are logged and never surface.
func (i Infra) changed(ctx context.Context, e events.Event, namespaces ...cache.Namespace) {
	if len(namespaces) > 0 {
		if err := i.Cache.Invalidate(ctx, e.OrganizationID, namespaces...); err != nil {
			i.Logger.Warn("failed to invalidate listing cache",
				zap.String("organization_id", e.OrganizationID.String()),
				zap.Any("namespaces", namespaces),
				zap.Error(err))
		}
	}
	if err := i.Publisher.Publish(ctx, e); err != nil {
		i.Logger.Warn("failed to publish event",
			zap.String("organization_id", e.OrganizationID.String()),
			zap.String("event", string(e.Type)),
			zap.Error(err))
	}
}

// cachedRead serves key from the namespace's current generation, loading and storing on a miss.
func cachedRead[T any](ctx context.Context, i Infra, org uuid.UUID, ns cache.Namespace, key string, load func() (T, error)) (T, error) {
	gen, err := i.Cache.Generation(ctx, org, ns)
	if err != nil {
		i.Logger.Warn("listing cache unavailable", zap.String("namespace", string(ns)), zap.Error(err))
		return load()
	}

	var cached T
	hit, err := i.Cache.Get(ctx, org, ns, gen, key, &cached)
	if err != nil {
		i.Logger.Warn("failed to read listing cache", zap.String("namespace", string(ns)), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	fresh, err := load()
	if err != nil {
		return fresh, err
	}
	if err := i.Cache.Set(ctx, org, ns, gen, key, fresh); err != nil {
		i.Logger.Warn("failed to fill listing cache", zap.String("namespace", string(ns)), zap.Error(err))
	}
	return fresh, nil
}

// storageErr maps repository failures onto the error kinds callers see.
func storageErr(err error, entity string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if repository.IsNotFound(err) {
		return apperror.NotFound(entity, id)
	}
	if errors.Is(err, repository.ErrStaleBudget) {
		return apperror.Upstream(err, "budget %v changed while updating", id)
	}
	return apperror.Upstream(err, "failed to access %s", entity)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, scope Scope, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		OrganizationID: scope.OrganizationID,
		UserID:         scope.userRef(),
		Action:         action,
		EntityID:       entityID,
		EntityName:     entityName,
		Details:        string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return apperror.Upstream(err, "failed to write audit log")
	}
	return nil
}

func parseID(raw, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s id %q", entity, raw)
	}
	return id, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validationErr renders validator failures as one VALIDATION_FAILED error naming every field.
func validationErr(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Wrap(apperror.KindValidationFailed, err, "invalid request")
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			parts = append(parts, fe.Field()+" is required")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return apperror.Validation("%s", strings.Join(parts, "; "))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

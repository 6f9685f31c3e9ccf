// Package gorm provides GORM-based repository implementations
package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/user"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// UserRepository implements the user repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) outbound.UserRepository {
	return &UserRepository{db: db}
}

// Ensure inserts the user when the id is unknown. An existing row is left
// untouched so admin flags survive repeated sign-ins.
func (r *UserRepository) Ensure(ctx context.Context, id uuid.UUID, email string) (*user.User, error) {
	model := &UserModel{ID: id, Email: strings.ToLower(email)}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	return r.findByID(r.db.WithContext(ctx).Clauses(dbresolver.Write), id)
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

func (r *UserRepository) findByID(db *gorm.DB, id uuid.UUID) (*user.User, error) {
	var model UserModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, err
	}
	return userFromModel(&model), nil
}

// FindByEmail looks up a user by lower-cased email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, err
	}
	return userFromModel(&model), nil
}

// SetAdmin flips the admin flag and writes an audit entry atomically.
func (r *UserRepository) SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) error {
	action := string(user.ActionRevokeAdmin)
	if isAdmin {
		action = string(user.ActionGrantAdmin)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&UserModel{}).
			Where("id = ?", targetID).
			Update("is_admin", isAdmin)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return outbound.ErrNotFound
		}

		return tx.Create(&AdminAuditModel{
			ActorID:      actorID,
			TargetUserID: targetID,
			Action:       action,
		}).Error
	})
}

// ListAdmins returns all admins ordered by email.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]*user.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).
		Where("is_admin = ?", true).
		Order("email ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, len(models))
	for i := range models {
		users[i] = userFromModel(&models[i])
	}
	return users, nil
}

// AuditRepository implements outbound.AuditRepository using GORM
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) outbound.AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry *user.AuditEntry) error {
	model := &AdminAuditModel{
		ID:           entry.ID,
		ActorID:      entry.ActorID,
		TargetUserID: entry.TargetUserID,
		Action:       entry.Action,
		CreatedAt:    entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

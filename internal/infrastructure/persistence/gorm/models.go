// Package gorm provides GORM model definitions and repositories for users,
// cookbook recipes, subscriptions and daily usage.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"gorm.io/gorm"
)

// UserModel represents the GORM model for users
type UserModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Email     string    `gorm:"type:varchar(320);uniqueIndex;not null"`
	IsAdmin   bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

// RecipeModel represents a cookbook recipe
type RecipeModel struct {
	ID          uuid.UUID                  `gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID                  `gorm:"type:char(36);not null;index:idx_recipes_user_created,priority:1"`
	Title       string                     `gorm:"type:varchar(300);not null"`
	Image       *string                    `gorm:"type:text"`
	Ingredients JSONList[recipe.Ingredient] `gorm:"type:json;not null"`
	Steps       JSONList[recipe.Step]       `gorm:"type:json;not null"`
	Servings    *int
	PrepTime    *string   `gorm:"type:varchar(100)"`
	CookTime    *string   `gorm:"type:varchar(100)"`
	TotalTime   *string   `gorm:"type:varchar(100)"`
	SourceURL   *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index:idx_recipes_user_created,priority:2,sort:desc"`

	User UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (RecipeModel) TableName() string { return "recipes" }

// SubscriptionModel holds the single subscription row of a user
type SubscriptionModel struct {
	ID                   uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID               uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex"`
	StripeCustomerID     *string    `gorm:"type:varchar(255);index"`
	StripeSubscriptionID *string    `gorm:"type:varchar(255);uniqueIndex"`
	Status               string     `gorm:"type:varchar(32);not null;default:'inactive'"`
	Plan                 string     `gorm:"type:varchar(32);not null;default:'free'"`
	IsPremium            bool       `gorm:"not null;default:false"`
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool       `gorm:"not null;default:false"`
	GrantedBy            *uuid.UUID `gorm:"type:char(36)"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	User UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }

// UsageModel counts one user's activity for one UTC day
type UsageModel struct {
	ID                 uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID             uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_usage_user_date,priority:1"`
	Date               time.Time `gorm:"type:date;not null;uniqueIndex:idx_usage_user_date,priority:2"`
	RecipesParsed      int       `gorm:"not null;default:0"`
	CustomizationsUsed int       `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	User UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (UsageModel) TableName() string { return "usage_tracking" }

// AdminAuditModel records admin role and plan grants
type AdminAuditModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	ActorID      uuid.UUID `gorm:"type:char(36);not null;index"`
	TargetUserID uuid.UUID `gorm:"type:char(36);not null;index"`
	Action       string    `gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time
}

func (AdminAuditModel) TableName() string { return "admin_audit_log" }

// AllModels lists every model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&RecipeModel{},
		&SubscriptionModel{},
		&UsageModel{},
		&AdminAuditModel{},
	}
}

// JSONList stores a slice as a JSON array column.
type JSONList[T any] []T

// Scan implements the sql.Scanner interface
func (l *JSONList[T]) Scan(value interface{}) error {
	if value == nil {
		*l = JSONList[T]{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into JSONList", value)
	}
}

// Value implements the driver.Valuer interface
func (l JSONList[T]) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (u *UsageModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (a *AdminAuditModel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

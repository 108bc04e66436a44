package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UsersCollection is the document collection of sign-up profiles.
const UsersCollection = "users"

type profileRecord struct {
	ID        uint   `gorm:"primaryKey"`
	UID       string `gorm:"index;not null"`
	Email     string `gorm:"not null"`
	FirstName string
	LastName  string
	Gender    string
	Birthdate string
	CreatedAt time.Time
}

func (profileRecord) TableName() string { return UsersCollection }

// ProfileRepository is append-only: profiles are written once at sign-up.
type ProfileRepository interface {
	Append(ctx context.Context, profile domain.Profile) error
	GetByUID(ctx context.Context, uid string) (*domain.Profile, error)
}

type GormProfileRepository struct {
	db *gorm.DB
}

// OpenProfileRepository connects with gorm and migrates the users table.
func OpenProfileRepository(dsn string) (*GormProfileRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open users db: %w", err)
	}
	repo := NewProfileRepository(db)
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return repo, nil
}

func NewProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

func (r *GormProfileRepository) Append(ctx context.Context, profile domain.Profile) error {
	rec := profileRecord{
		UID:       profile.UID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Gender:    profile.Gender,
		Birthdate: profile.Birthdate,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("append profile: %w", err)
	}
	return nil
}

// GetByUID returns the earliest profile written for uid.
func (r *GormProfileRepository) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	var rec profileRecord
	err := r.db.WithContext(ctx).Where("uid = ?", uid).Order("id").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Collection: UsersCollection, ID: uid}
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &domain.Profile{
		UID:       rec.UID,
		Email:     rec.Email,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Gender:    rec.Gender,
		Birthdate: rec.Birthdate,
	}, nil
}

// Close releases the connection pool behind the gorm handle.
func (r *GormProfileRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("users db handle: %w", err)
	}
	return sqlDB.Close()
}

var _ ProfileRepository = (*GormProfileRepository)(nil)

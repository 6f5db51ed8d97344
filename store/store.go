// Package store persists exploration translation opportunities, the server
// side source of the per language progress counts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/xid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mzalendo/lingopref/progress"
)

var ErrOpportunityNotFound = errors.New("exploration opportunity not found")

// ExplorationOpportunity is one exploration+language pair open for
// contribution, with the counts the progress tracker derives its ratio from.
type ExplorationOpportunity struct {
	ID              string `gorm:"primaryKey;type:varchar(24)"                            json:"id"`
	ExplorationID   string `gorm:"index:idx_opportunity_exploration_language,unique"      json:"exploration_id"`
	LanguageCode    string `gorm:"index:idx_opportunity_exploration_language,unique;size:12" json:"language_code"`
	DisplayLanguage string `gorm:"size:12"                                                json:"display_language"`

	RequiredCount    int `json:"required_count"`
	UnavailableCount int `json:"unavailable_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *ExplorationOpportunity) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = xid.New().String()
	}
	return nil
}

// OpportunityRepository is the persistence surface for opportunities. Its
// Counts method satisfies progress.CountsSource.
type OpportunityRepository interface {
	Save(ctx context.Context, opportunity *ExplorationOpportunity) error
	GetByExplorationAndLanguage(ctx context.Context, explorationID, languageCode string) (*ExplorationOpportunity, error)
	ListByExploration(ctx context.Context, explorationID string) ([]*ExplorationOpportunity, error)
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context, explorationID, languageCode string) (progress.Report, error)
}

// Open connects to the primary database with the gorm postgres driver.
func Open(_ context.Context, dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
}

// Migrate applies the opportunity schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&ExplorationOpportunity{})
}

type opportunityRepository struct {
	db *gorm.DB
}

// NewOpportunityRepository creates a repository over the supplied connection.
func NewOpportunityRepository(db *gorm.DB) OpportunityRepository {
	return &opportunityRepository{db: db}
}

func (r *opportunityRepository) Save(ctx context.Context, opportunity *ExplorationOpportunity) error {
	return r.db.WithContext(ctx).Save(opportunity).Error
}

func (r *opportunityRepository) GetByExplorationAndLanguage(
	ctx context.Context, explorationID, languageCode string,
) (*ExplorationOpportunity, error) {
	var opportunity ExplorationOpportunity
	err := r.db.WithContext(ctx).
		Where("exploration_id = ? AND language_code = ?", explorationID, languageCode).
		First(&opportunity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOpportunityNotFound
		}
		return nil, err
	}
	return &opportunity, nil
}

func (r *opportunityRepository) ListByExploration(
	ctx context.Context, explorationID string,
) ([]*ExplorationOpportunity, error) {
	var opportunities []*ExplorationOpportunity
	err := r.db.WithContext(ctx).
		Where("exploration_id = ?", explorationID).
		Order("language_code asc").
		Find(&opportunities).Error
	if err != nil {
		return nil, err
	}
	return opportunities, nil
}

func (r *opportunityRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&ExplorationOpportunity{}, "id = ?", id).Error
}

// Counts adapts an opportunity row into the progress report counts.
func (r *opportunityRepository) Counts(
	ctx context.Context, explorationID, languageCode string,
) (progress.Report, error) {
	opportunity, err := r.GetByExplorationAndLanguage(ctx, explorationID, languageCode)
	if err != nil {
		return progress.Report{}, err
	}

	return progress.Report{
		ExplorationID: explorationID,
		LanguageCode:  languageCode,
		Required:      opportunity.RequiredCount,
		Unavailable:   opportunity.UnavailableCount,
	}, nil
}

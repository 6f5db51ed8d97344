package store_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mzalendo/lingopref/store"
)

type OpportunityRepositoryTestSuite struct {
	suite.Suite

	db         *gorm.DB
	repository store.OpportunityRepository
}

func TestOpportunityRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(OpportunityRepositoryTestSuite))
}

func (s *OpportunityRepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	s.Require().NoError(err)

	// Every pooled connection gets its own :memory: database, so pin the
	// pool to a single connection.
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(store.Migrate(s.T().Context(), db))
	s.db = db
	s.repository = store.NewOpportunityRepository(db)
}

func (s *OpportunityRepositoryTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *OpportunityRepositoryTestSuite) TestSaveGeneratesIDAndRoundtrips() {
	ctx := s.T().Context()

	opportunity := &store.ExplorationOpportunity{
		ExplorationID:    "exp-1",
		LanguageCode:     "sw",
		DisplayLanguage:  "en",
		RequiredCount:    8,
		UnavailableCount: 3,
	}
	s.Require().NoError(s.repository.Save(ctx, opportunity))
	s.NotEmpty(opportunity.ID)

	got, err := s.repository.GetByExplorationAndLanguage(ctx, "exp-1", "sw")
	s.Require().NoError(err)
	s.Equal(opportunity.ID, got.ID)
	s.Equal(8, got.RequiredCount)
	s.Equal(3, got.UnavailableCount)
	s.Equal("en", got.DisplayLanguage)
}

func (s *OpportunityRepositoryTestSuite) TestSaveUpdatesCounts() {
	ctx := s.T().Context()

	opportunity := &store.ExplorationOpportunity{
		ExplorationID:    "exp-2",
		LanguageCode:     "hi",
		RequiredCount:    10,
		UnavailableCount: 10,
	}
	s.Require().NoError(s.repository.Save(ctx, opportunity))

	opportunity.UnavailableCount = 4
	s.Require().NoError(s.repository.Save(ctx, opportunity))

	got, err := s.repository.GetByExplorationAndLanguage(ctx, "exp-2", "hi")
	s.Require().NoError(err)
	s.Equal(4, got.UnavailableCount)
}

func (s *OpportunityRepositoryTestSuite) TestGetMissingOpportunity() {
	_, err := s.repository.GetByExplorationAndLanguage(s.T().Context(), "exp-none", "sw")
	s.ErrorIs(err, store.ErrOpportunityNotFound)
}

func (s *OpportunityRepositoryTestSuite) TestCountsFeedProgressReport() {
	ctx := s.T().Context()

	s.Require().NoError(s.repository.Save(ctx, &store.ExplorationOpportunity{
		ExplorationID:    "exp-3",
		LanguageCode:     "fr",
		RequiredCount:    12,
		UnavailableCount: 5,
	}))

	report, err := s.repository.Counts(ctx, "exp-3", "fr")
	s.Require().NoError(err)
	s.Equal("exp-3", report.ExplorationID)
	s.Equal("fr", report.LanguageCode)
	s.Equal(12, report.Required)
	s.Equal(5, report.Unavailable)
	s.Equal(7, report.Completed())

	_, err = s.repository.Counts(ctx, "exp-3", "zz")
	s.ErrorIs(err, store.ErrOpportunityNotFound)
}

func (s *OpportunityRepositoryTestSuite) TestListByExplorationOrdersByLanguage() {
	ctx := s.T().Context()

	for _, code := range []string{"sw", "ar", "hi"} {
		s.Require().NoError(s.repository.Save(ctx, &store.ExplorationOpportunity{
			ExplorationID: "exp-4",
			LanguageCode:  code,
			RequiredCount: 1,
		}))
	}

	listed, err := s.repository.ListByExploration(ctx, "exp-4")
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	s.Equal("ar", listed[0].LanguageCode)
	s.Equal("hi", listed[1].LanguageCode)
	s.Equal("sw", listed[2].LanguageCode)
}

func (s *OpportunityRepositoryTestSuite) TestDelete() {
	ctx := s.T().Context()

	opportunity := &store.ExplorationOpportunity{
		ExplorationID: "exp-5",
		LanguageCode:  "pt",
		RequiredCount: 2,
	}
	s.Require().NoError(s.repository.Save(ctx, opportunity))
	s.Require().NoError(s.repository.Delete(ctx, opportunity.ID))

	_, err := s.repository.GetByExplorationAndLanguage(ctx, "exp-5", "pt")
	s.ErrorIs(err, store.ErrOpportunityNotFound)
}

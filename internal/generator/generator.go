// Package generator produces synthetic library events for load and
// integration testing of the pipeline.
package generator

import (
	"fmt"
	"time"

	"github.com/jaswdr/faker"
	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/config"
	"github.com/jittakal/kafeventsdk/pkg/event"
)

// Generator generates fake library events.
type Generator struct {
	config config.GeneratorConfig
	faker  faker.Faker
	logger *zap.Logger
}

// NewGenerator creates a new event generator.
func NewGenerator(cfg config.GeneratorConfig, logger *zap.Logger) *Generator {
	return &Generator{
		config: cfg,
		faker:  faker.New(),
		logger: logger,
	}
}

// BookIssued generates a book issued event.
func (g *Generator) BookIssued() (*event.Event, error) {
	now := time.Now().UTC()
	data := BookIssuedData{
		BookID:      g.bookID(),
		Title:       g.faker.Lorem().Sentence(5),
		ISBN:        g.isbn(),
		Author:      g.faker.Person().Name(),
		Category:    g.category(),
		MemberID:    g.memberID(),
		MemberName:  g.faker.Person().Name(),
		MemberEmail: g.faker.Internet().Email(),
		IssueDate:   now,
		DueDate:     now.Add(14 * 24 * time.Hour),
		LibraryID:   g.libraryID(),
		BranchName:  g.faker.Address().City() + " Branch",
	}

	e, err := event.NewBuilderV10().
		Source(g.config.Source).
		Type(EventTypeBookIssued).
		Subject(data.BookID).
		Time(now).
		Extension("libraryid", data.LibraryID).
		JSONData(contentTypeJSON, data).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build book issued event: %w", err)
	}
	return e, nil
}

// BookReturned generates a book returned event. Roughly a quarter of the
// returns come back late and accrue a fee.
func (g *Generator) BookReturned() (*event.Event, error) {
	now := time.Now().UTC()
	issueDate := now.Add(-time.Duration(g.faker.IntBetween(7, 30)) * 24 * time.Hour)
	dueDate := issueDate.Add(14 * 24 * time.Hour)

	isLate := now.After(dueDate)
	lateDays := 0
	lateFee := 0.0
	if isLate {
		lateDays = int(now.Sub(dueDate).Hours() / 24)
		lateFee = float64(lateDays) * 0.50
	}

	data := BookReturnedData{
		BookID:        g.bookID(),
		Title:         g.faker.Lorem().Sentence(5),
		ISBN:          g.isbn(),
		MemberID:      g.memberID(),
		MemberName:    g.faker.Person().Name(),
		IssueDate:     issueDate,
		ReturnDate:    now,
		DueDate:       dueDate,
		IsLate:        isLate,
		LateDays:      lateDays,
		LateFeeAmount: lateFee,
		LibraryID:     g.libraryID(),
		BranchName:    g.faker.Address().City() + " Branch",
		Condition:     g.condition(),
	}

	e, err := event.NewBuilderV10().
		Source(g.config.Source).
		Type(EventTypeBookReturned).
		Subject(data.BookID).
		Time(now).
		Extension("libraryid", data.LibraryID).
		JSONData(contentTypeJSON, data).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build book returned event: %w", err)
	}
	return e, nil
}

// ShouldEmit rolls against an event type's configured probability.
func (g *Generator) ShouldEmit(cfg config.EventTypeConfig) bool {
	if !cfg.Enabled {
		return false
	}
	if cfg.Probability >= 1.0 {
		return true
	}
	return g.faker.IntBetween(1, 100) <= int(cfg.Probability*100)
}

func (g *Generator) bookID() string {
	return "B" + g.faker.UUID().V4()[0:8]
}

func (g *Generator) memberID() string {
	return "M" + g.faker.UUID().V4()[0:8]
}

func (g *Generator) libraryID() string {
	return "LIB" + g.faker.UUID().V4()[0:6]
}

func (g *Generator) isbn() string {
	return "978-" + g.faker.RandomStringWithLength(10)
}

func (g *Generator) category() string {
	categories := []string{
		"Fiction",
		"Non-Fiction",
		"Science",
		"Technology",
		"History",
		"Biography",
		"Mystery",
		"Thriller",
		"Romance",
		"Fantasy",
		"Self-Help",
		"Business",
		"Programming",
		"Art",
		"Philosophy",
	}
	return categories[g.faker.IntBetween(0, len(categories)-1)]
}

func (g *Generator) condition() string {
	conditions := []string{"good", "fair", "damaged"}
	weights := []int{70, 25, 5}

	roll := g.faker.IntBetween(1, 100)
	cumulative := 0
	for i, weight := range weights {
		cumulative += weight
		if roll <= cumulative {
			return conditions[i]
		}
	}
	return conditions[0]
}

package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"civreg/internal/citizen/models"
)

// Name pools for synthetic records.
var (
	seedFirstNames  = []string{"Ivan", "Alex", "Anna", "Pyotr", "Nina", "Lena", "Igor", "Oleg", "Katya"}
	seedMiddleNames = []string{"Petrovich", "Ivanoovich", "Dmitrievich"}
	seedLastNames   = []string{"Ivanov", "Petroov", "Pushkin", "Tolstoy"}
)

// GenerateSeed returns n synthetic citizen records: pooled names, random
// SNILS/INN-shaped strings, birth dates uniform in [1900-01-01, today), and
// a death date after birth for roughly one record in five.
//
// The rand source is passed in so seeding stays deterministic under test and
// never touches process-global randomness.
func GenerateSeed(rnd *rand.Rand, n int) []models.Citizen {
	epoch := models.NewDate(1900, time.January, 1)
	today := models.DateOf(time.Now())
	lifespanDays := epoch.DaysUntil(today)

	citizens := make([]models.Citizen, 0, n)
	for i := 0; i < n; i++ {
		c := models.Citizen{
			FullName: fmt.Sprintf("%s %s %s",
				seedLastNames[rnd.Intn(len(seedLastNames))],
				seedFirstNames[rnd.Intn(len(seedFirstNames))],
				seedMiddleNames[rnd.Intn(len(seedMiddleNames))],
			),
			Snils: fmt.Sprintf("%03d-%03d-%03d 00", rnd.Intn(1000), rnd.Intn(1000), rnd.Intn(1000)),
			Inn:   fmt.Sprintf("%012d", rnd.Int63n(1_000_000_000_000)),
		}
		c.BirthDate = epoch.AddDays(rnd.Intn(lifespanDays))
		if rnd.Float64() >= 0.8 {
			remaining := c.BirthDate.DaysUntil(today)
			if remaining > 0 {
				d := c.BirthDate.AddDays(rnd.Intn(remaining))
				c.DeathDate = &d
			}
		}
		citizens = append(citizens, c)
	}
	return citizens
}

// SeedIfEmpty populates the store with n synthetic records when it holds
// none. Bootstrap convenience, not a correctness requirement; collisions in
// the random SNILS/INN values surface as a conflict error, which callers may
// treat as non-fatal.
func SeedIfEmpty(ctx context.Context, s Store, rnd *rand.Rand, n int) (int, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if count > 0 || n <= 0 {
		return 0, nil
	}
	citizens := GenerateSeed(rnd, n)
	if err := s.CreateBatch(ctx, citizens); err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return len(citizens), nil
}

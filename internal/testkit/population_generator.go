package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"popdash/domain/dataset"
)

// PopulationGeneratorConfig configures synthetic wide population tables
type PopulationGeneratorConfig struct {
	StartYear    int      `json:"start_year"`
	Years        int      `json:"years"`
	AgeGroups    []string `json:"age_groups"`
	Regions      []string `json:"regions"`
	BasePerGroup int      `json:"base_per_group"`
	GrowthRate   float64  `json:"growth_rate"` // yearly, e.g. 0.01
	Noise        float64  `json:"noise"`       // relative standard deviation
	ThousandsSep bool     `json:"thousands_sep"`
	IncludeTotal bool     `json:"include_total"`
	Seed         int64    `json:"seed"`
}

// DefaultPopulationConfig returns a small, deterministic configuration
func DefaultPopulationConfig() PopulationGeneratorConfig {
	return PopulationGeneratorConfig{
		StartYear:    2010,
		Years:        12,
		AgeGroups:    []string{"0-14", "15-64", "65+"},
		Regions:      []string{"X", "Y"},
		BasePerGroup: 5000,
		GrowthRate:   0.01,
		Noise:        0.02,
		ThousandsSep: true,
		IncludeTotal: true,
		Seed:         42,
	}
}

// PopulationGenerator produces wide tables shaped like the dashboard inputs:
// one row per (year, region), one column per age group.
type PopulationGenerator struct {
	config PopulationGeneratorConfig
	rng    *rand.Rand
}

// NewPopulationGenerator creates a generator; the same seed yields the same table
func NewPopulationGenerator(config PopulationGeneratorConfig) *PopulationGenerator {
	return &PopulationGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Headers returns the generated column order
func (g *PopulationGenerator) Headers() []string {
	headers := []string{"year"}
	if len(g.config.Regions) > 0 {
		headers = append(headers, "region")
	}
	headers = append(headers, g.config.AgeGroups...)
	if g.config.IncludeTotal {
		headers = append(headers, "total")
	}
	return headers
}

// GenerateRows returns the string cells of every row
func (g *PopulationGenerator) GenerateRows() [][]string {
	regions := g.config.Regions
	if len(regions) == 0 {
		regions = []string{""}
	}

	var rows [][]string
	for y := 0; y < g.config.Years; y++ {
		year := g.config.StartYear + y
		growth := math.Pow(1+g.config.GrowthRate, float64(y))
		for _, region := range regions {
			row := []string{strconv.Itoa(year)}
			if len(g.config.Regions) > 0 {
				row = append(row, region)
			}
			total := 0
			for i := range g.config.AgeGroups {
				// Older groups are smaller
				base := float64(g.config.BasePerGroup) / float64(i+1)
				value := int(math.Round(base * growth * (1 + g.rng.NormFloat64()*g.config.Noise)))
				if value < 0 {
					value = 0
				}
				total += value
				row = append(row, g.format(value))
			}
			if g.config.IncludeTotal {
				row = append(row, g.format(total))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// GenerateTable builds the raw table
func (g *PopulationGenerator) GenerateTable() *dataset.RawTable {
	return dataset.NewRawTable(g.Headers(), g.GenerateRows())
}

// Source wraps a generated table as a StaticSource
func (g *PopulationGenerator) Source(name string) *StaticSource {
	return NewStaticSource(name, g.Headers(), g.GenerateRows())
}

func (g *PopulationGenerator) format(n int) string {
	if !g.config.ThousandsSep || n < 1000 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%s,%03d", g.format(n/1000), n%1000)
}

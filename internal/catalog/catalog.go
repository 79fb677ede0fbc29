// Package catalog holds the exercise reference data: which muscles each
// exercise trains and how strongly.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/claude/liftlog/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// ErrUnknownExercise is matched by every *UnknownExerciseError.
var ErrUnknownExercise = errors.New("unknown exercise")

// UnknownExerciseError reports a set that references an exercise id the catalog does not have.
type UnknownExerciseError struct {
	ExerciseID string
}

func (e *UnknownExerciseError) Error() string {
	return fmt.Sprintf("unknown exercise %q", e.ExerciseID)
}

// Is makes errors.Is(err, ErrUnknownExercise) work.
func (e *UnknownExerciseError) Is(target error) bool {
	return target == ErrUnknownExercise
}

// Catalog is an immutable set of exercise definitions. Safe for concurrent use.
type Catalog struct {
	byID  map[string]models.ExerciseDefinition
	ids   []string
	names map[string]string // normalized name/alias -> id
}

type file struct {
	Exercises []models.ExerciseDefinition `yaml:"exercises"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault is like Default but panics if the compiled-in catalog is invalid.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path loads the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(f.Exercises)
}

// New builds a catalog from definitions, rejecting duplicates and malformed entries.
func New(defs []models.ExerciseDefinition) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[string]models.ExerciseDefinition, len(defs)),
		names: make(map[string]string, len(defs)*3),
	}
	for _, d := range defs {
		if err := validate(d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate exercise id %q", d.ID)
		}
		c.byID[d.ID] = d
		c.ids = append(c.ids, d.ID)
	}
	sort.Strings(c.ids)

	// Index names in id order so alias collisions resolve the same way every load.
	for _, id := range c.ids {
		d := c.byID[id]
		for _, n := range append([]string{d.ID, d.Name}, d.Aliases...) {
			key := normalize(n)
			if key == "" {
				continue
			}
			for _, k := range []string{key, singular(key)} {
				if _, taken := c.names[k]; !taken {
					c.names[k] = id
				}
			}
		}
	}
	return c, nil
}

func validate(d models.ExerciseDefinition) error {
	if d.ID == "" {
		return fmt.Errorf("exercise %q: id is required", d.Name)
	}
	if len(d.PrimaryMuscles) == 0 {
		return fmt.Errorf("exercise %q: at least one primary muscle is required", d.ID)
	}
	for _, list := range [][]models.MuscleInvolvement{d.PrimaryMuscles, d.SecondaryMuscles, d.StabilizerMuscles} {
		for _, mi := range list {
			if !mi.Muscle.Valid() {
				return fmt.Errorf("exercise %q: unknown muscle %q", d.ID, mi.Muscle)
			}
			if mi.Percentage <= 0 || mi.Percentage > 100 {
				return fmt.Errorf("exercise %q: %s percentage %v out of range (0,100]", d.ID, mi.Muscle, mi.Percentage)
			}
		}
	}
	if d.StartingWeight != nil && *d.StartingWeight < 0 {
		return fmt.Errorf("exercise %q: starting_weight must be >= 0", d.ID)
	}
	if d.WeightIncrement < 0 {
		return fmt.Errorf("exercise %q: weight_increment must be >= 0", d.ID)
	}
	return nil
}

// Lookup returns the definition for id or an *UnknownExerciseError.
func (c *Catalog) Lookup(id string) (models.ExerciseDefinition, error) {
	d, ok := c.byID[id]
	if !ok {
		return models.ExerciseDefinition{}, &UnknownExerciseError{ExerciseID: id}
	}
	return d, nil
}

// Exercises returns all definitions sorted by id.
func (c *Catalog) Exercises() []models.ExerciseDefinition {
	out := make([]models.ExerciseDefinition, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// ExercisesFor returns the exercises that involve m, sorted by id.
func (c *Catalog) ExercisesFor(m models.Muscle) []models.ExerciseDefinition {
	var out []models.ExerciseDefinition
	for _, id := range c.ids {
		if d := c.byID[id]; d.Involvement(m) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of exercises.
func (c *Catalog) Len() int {
	return len(c.ids)
}

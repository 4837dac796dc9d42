package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// MatrixWeights are the base shares of the three pre-game component matrices
// before source-availability arbitration.
type MatrixWeights struct {
	Baseline float64 `yaml:"baseline"`
	Team     float64 `yaml:"team"`
	Sim      float64 `yaml:"sim"`
}

// VectorWeights blend one side's scoring-digit vector.
type VectorWeights struct {
	Offense         float64 `yaml:"offense"`
	OpponentDefense float64 `yaml:"opponent_defense"`
	FormOffense     float64 `yaml:"form_offense"`
	FormDefense     float64 `yaml:"form_defense"`
}

// PointsWeights blend one side's expected final points.
type PointsWeights struct {
	TeamFor         float64 `yaml:"team_for"`
	OpponentAgainst float64 `yaml:"opponent_against"`
	TeamStats       float64 `yaml:"team_stats"`
	Form            float64 `yaml:"form"`
	League          float64 `yaml:"league"`
}

type ModelWeights struct {
	Matrix MatrixWeights `yaml:"matrix"`
	Vector VectorWeights `yaml:"vector"`
	Points PointsWeights `yaml:"points"`
}

func DefaultModelWeights() ModelWeights {
	return ModelWeights{
		Matrix: MatrixWeights{Baseline: 0.45, Team: 0.35, Sim: 0.20},
		Vector: VectorWeights{Offense: 0.55, OpponentDefense: 0.25, FormOffense: 0.12, FormDefense: 0.08},
		Points: PointsWeights{TeamFor: 0.42, OpponentAgainst: 0.28, TeamStats: 0.15, Form: 0.10, League: 0.05},
	}
}

// LoadModelWeights reads a YAML override file. A missing file yields the
// compiled defaults; fields absent from the file keep their default value.
func LoadModelWeights(path string) (ModelWeights, error) {
	w := DefaultModelWeights()
	if path == "" {
		return w, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return w, nil
	}
	if err != nil {
		return w, fmt.Errorf("read model weights: %w", err)
	}

	if err := yaml.Unmarshal(data, &w); err != nil {
		return DefaultModelWeights(), fmt.Errorf("parse model weights: %w", err)
	}
	if err := w.validate(); err != nil {
		return DefaultModelWeights(), err
	}
	return w, nil
}

func (w ModelWeights) validate() error {
	for name, v := range map[string]float64{
		"matrix.baseline": w.Matrix.Baseline, "matrix.team": w.Matrix.Team, "matrix.sim": w.Matrix.Sim,
		"vector.offense": w.Vector.Offense, "vector.opponent_defense": w.Vector.OpponentDefense,
		"vector.form_offense": w.Vector.FormOffense, "vector.form_defense": w.Vector.FormDefense,
		"points.team_for": w.Points.TeamFor, "points.opponent_against": w.Points.OpponentAgainst,
		"points.team_stats": w.Points.TeamStats, "points.form": w.Points.Form, "points.league": w.Points.League,
	} {
		if v < 0 {
			return fmt.Errorf("model weights: %s is negative (%v)", name, v)
		}
	}
	if w.Matrix.Baseline+w.Matrix.Team+w.Matrix.Sim <= 0 {
		return errors.New("model weights: matrix weights sum to zero")
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/dom/imagify/internal/domain"
	"gopkg.in/yaml.v3"
)

type plansFile struct {
	Plans []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Credits int    `yaml:"credits"`
	} `yaml:"plans"`
}

// LoadPlans reads a top-up plan catalog from a YAML file of the form
//
//	plans:
//	  - id: basic
//	    name: Basic
//	    credits: 5
//
// Environment variables in the form ${VAR} are expanded before parsing.
func LoadPlans(path string) ([]domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}

	var file plansFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}

	plans := make([]domain.Plan, 0, len(file.Plans))
	for _, p := range file.Plans {
		plans = append(plans, domain.Plan{ID: p.ID, Name: p.Name, Credits: p.Credits})
	}

	if err := domain.ValidatePlans(plans); err != nil {
		return nil, fmt.Errorf("plans file %s: %w", path, err)
	}
	return plans, nil
}

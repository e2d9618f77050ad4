package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mergd/curro-sub001/internal/domain"
)

type CompaniesFile struct {
	Companies []domain.CompanyInput `yaml:"companies"`
}

// OverlayCompanies replaces cfg.Companies with the list in companiesPath
// when that file exists and is non-empty.
func OverlayCompanies(cfg *Config, companiesPath string) error {
	b, err := os.ReadFile(companiesPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var cf CompaniesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return err
	}
	if len(cf.Companies) > 0 {
		cfg.Companies = cf.Companies
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"casper-backend/internal/models"
	"casper-backend/internal/users"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type codeEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type adminEntry struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Password  string `yaml:"password"`
}

// Fixture is the content of a seed file: reference codes plus an optional first admin.
type Fixture struct {
	Buyers   []codeEntry `yaml:"buyers"`
	Planners []codeEntry `yaml:"planners"`
	Admin    *adminEntry `yaml:"admin"`
}

// ParseFixture decodes and checks a seed file. Codes are upper-cased and must be unique per list.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed file: %w", err)
	}

	if err := normalizeCodes("buyers", f.Buyers); err != nil {
		return nil, err
	}
	if err := normalizeCodes("planners", f.Planners); err != nil {
		return nil, err
	}

	if f.Admin != nil {
		f.Admin.Email = strings.ToLower(strings.TrimSpace(f.Admin.Email))
		if !users.ValidEmail(f.Admin.Email) {
			return nil, fmt.Errorf("admin: email %q is not valid", f.Admin.Email)
		}
		if f.Admin.FirstName == "" || f.Admin.LastName == "" {
			return nil, errors.New("admin: first_name and last_name are required")
		}
		if report := users.CheckPassword(f.Admin.Password); !report.OK() {
			return nil, fmt.Errorf("admin: weak password (%s)", report)
		}
	}

	return &f, nil
}

func normalizeCodes(list string, entries []codeEntry) error {
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		code := strings.ToUpper(strings.TrimSpace(entries[i].Code))
		if code == "" {
			return fmt.Errorf("%s[%d]: code is required", list, i)
		}
		if seen[code] {
			return fmt.Errorf("%s: duplicate code %s", list, code)
		}
		seen[code] = true
		entries[i].Code = code
	}
	return nil
}

func (f *Fixture) buyers() []models.Buyer {
	out := make([]models.Buyer, 0, len(f.Buyers))
	for _, b := range f.Buyers {
		out = append(out, models.Buyer{Code: b.Code, Name: b.Name})
	}
	return out
}

func (f *Fixture) planners() []models.Planner {
	out := make([]models.Planner, 0, len(f.Planners))
	for _, p := range f.Planners {
		out = append(out, models.Planner{Code: p.Code, Name: p.Name})
	}
	return out
}

// Apply upserts the fixture in one transaction. Existing codes get their name updated;
// an existing admin keeps its password and is only re-activated.
func (f *Fixture) Apply(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		byCode := clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}

		if buyers := f.buyers(); len(buyers) > 0 {
			if err := tx.Clauses(byCode).Create(&buyers).Error; err != nil {
				return fmt.Errorf("buyers: %w", err)
			}
		}
		if planners := f.planners(); len(planners) > 0 {
			if err := tx.Clauses(byCode).Create(&planners).Error; err != nil {
				return fmt.Errorf("planners: %w", err)
			}
		}

		if f.Admin == nil {
			return nil
		}
		return f.applyAdmin(tx)
	})
}

func (f *Fixture) applyAdmin(tx *gorm.DB) error {
	var existing models.User
	err := tx.Where("email = ?", f.Admin.Email).First(&existing).Error
	if err == nil {
		return tx.Model(&existing).Updates(map[string]interface{}{
			"is_active": true,
			"is_admin":  true,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        f.Admin.Email,
		FirstName:    f.Admin.FirstName,
		LastName:     f.Admin.LastName,
		PasswordHash: string(hash),
		IsActive:     true,
		IsAdmin:      true,
		IsSuperuser:  true,
	}
	return tx.Create(&admin).Error
}

package providers

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

type seedFile struct {
	Providers []seedProvider `yaml:"providers"`
}

type seedProvider struct {
	Name           string   `yaml:"name"`
	Specialization string   `yaml:"specialization"`
	Email          string   `yaml:"email"`
	Phone          string   `yaml:"phone"`
	WorkingDays    []string `yaml:"working_days"`
	WorkingHours   struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"working_hours"`
	SlotDurationMinutes int `yaml:"slot_duration_minutes"`
}

// LoadSeedFile reads a YAML provider roster from disk.
func LoadSeedFile(path string) ([]Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("providers: open seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// LoadSeed decodes a YAML provider roster and validates every entry.
func LoadSeed(r io.Reader) ([]Provider, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("providers: decode seed: %w", err)
	}
	out := make([]Provider, 0, len(file.Providers))
	for i, sp := range file.Providers {
		p, err := sp.provider()
		if err != nil {
			return nil, fmt.Errorf("providers: seed entry %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (sp seedProvider) provider() (Provider, error) {
	days, err := calendar.ParseWeekdays(sp.WorkingDays)
	if err != nil {
		return Provider{}, err
	}
	start, err := calendar.ParseClock(sp.WorkingHours.Start)
	if err != nil {
		return Provider{}, err
	}
	end, err := calendar.ParseClock(sp.WorkingHours.End)
	if err != nil {
		return Provider{}, err
	}
	p := Provider{
		Name:                sp.Name,
		Specialization:      sp.Specialization,
		Email:               sp.Email,
		Phone:               sp.Phone,
		WorkingDays:         days,
		WorkingHoursStart:   start,
		WorkingHoursEnd:     end,
		SlotDurationMinutes: sp.SlotDurationMinutes,
	}
	return p, p.Validate()
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// seedFile is the YAML document applied by the seed command.
type seedFile struct {
	Admin       *seedAdmin       `yaml:"admin"`
	TicketTypes []seedTicketType `yaml:"ticket_types"`
}

type seedAdmin struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type seedTicketType struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       string  `yaml:"price"`
	Capacity    *uint32 `yaml:"capacity"`
	Active      *bool   `yaml:"active"`
}

func parseSeed(r io.Reader) (*seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if f.Admin != nil && (strings.TrimSpace(f.Admin.Email) == "" || strings.TrimSpace(f.Admin.Name) == "") {
		return nil, errors.New("admin needs a name and an email")
	}
	return &f, nil
}

// ticketTypes converts the YAML entries; list position becomes sort order.
func (f *seedFile) ticketTypes() ([]model.TicketType, error) {
	out := make([]model.TicketType, 0, len(f.TicketTypes))
	seen := map[string]bool{}
	for i, tt := range f.TicketTypes {
		name := strings.TrimSpace(tt.Name)
		if name == "" {
			return nil, fmt.Errorf("ticket_types[%d]: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("ticket_types[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		price, err := decimal.NewFromString(strings.TrimSpace(tt.Price))
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("ticket_types[%d]: invalid price %q", i, tt.Price)
		}
		active := true
		if tt.Active != nil {
			active = *tt.Active
		}
		out = append(out, model.TicketType{
			Name:        name,
			Description: strings.TrimSpace(tt.Description),
			Price:       price.Round(2),
			Capacity:    tt.Capacity,
			IsActive:    active,
			SortOrder:   (i + 1) * 10,
		})
	}
	return out, nil
}

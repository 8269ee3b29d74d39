package screen

import (
	"fmt"
	"sort"
	"strings"
)

var allCountries = []string{
	"Afghanistan", "Albania", "Algeria", "Andorra", "Angola", "Argentina", "Australia", "Austria", "Bahamas", "Bangladesh",
	"Belarus", "Belgium", "Bolivia", "Brazil", "Bulgaria", "Cambodia", "Cameroon", "Canada", "Chile", "China", "Colombia",
	"Costa Rica", "Croatia", "Cuba", "Cyprus", "Czechia", "Denmark", "Dominican Republic", "Ecuador", "Egypt", "Estonia",
	"Finland", "France", "Germany", "Greece", "Honduras", "Hungary", "Iceland", "India", "Indonesia", "Iran", "Iraq",
	"Ireland", "Israel", "Italy", "Japan", "Kazakhstan", "Kenya", "Kuwait", "Latvia", "Lebanon", "Libya", "Lithuania",
	"Luxembourg", "Malaysia", "Mexico", "Moldova", "Monaco", "Mongolia", "Montenegro", "Morocco", "Nepal", "Netherlands",
	"New Zealand", "Nigeria", "North Macedonia", "Norway", "Oman", "Pakistan", "Panama", "Paraguay", "Peru", "Philippines",
	"Poland", "Portugal", "Qatar", "Romania", "Russia", "Saudi Arabia", "Senegal", "Serbia", "Singapore", "Slovakia",
	"Slovenia", "South Africa", "South Korea", "Spain", "Sri Lanka", "Sweden", "Switzerland", "Taiwan", "Tanzania",
	"Thailand", "Tunisia", "Turkey", "Uganda", "Ukraine", "United Arab Emirates", "United Kingdom", "Uruguay", "US", "Venezuela",
}

// Countries returns the sorted list of selectable countries.
func Countries() []string {
	result := append([]string(nil), allCountries...)
	sort.Strings(result)
	return result
}

// CanonicalCountry finds the listed spelling of name, ignoring case.
func CanonicalCountry(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range allCountries {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

type SelectionState struct {
	Countries []string
	Selected  map[string]bool
}

// SelectedList returns the selection in list order.
func (s SelectionState) SelectedList() []string {
	result := make([]string, 0, len(s.Selected))
	for _, c := range s.Countries {
		if s.Selected[c] {
			result = append(result, c)
		}
	}
	return result
}

type CountrySelection struct {
	store *Store[SelectionState]
}

// NewCountrySelection starts with the given countries selected. Unknown names
// are dropped.
func NewCountrySelection(selected []string) *CountrySelection {
	set := make(map[string]bool, len(selected))
	for _, name := range selected {
		if c, ok := CanonicalCountry(name); ok {
			set[c] = true
		}
	}
	return &CountrySelection{store: NewStore(SelectionState{
		Countries: Countries(),
		Selected:  set,
	})}
}

func (c *CountrySelection) Snapshot() SelectionState {
	return c.store.Snapshot()
}

// Toggle adds the country to the selection or removes it when already there.
func (c *CountrySelection) Toggle(name string) (SelectionState, error) {
	country, ok := CanonicalCountry(name)
	if !ok {
		return c.Snapshot(), fmt.Errorf("%q: %w", name, ErrUnknownCountry)
	}
	return c.store.Update(func(s SelectionState) SelectionState {
		set := make(map[string]bool, len(s.Selected)+1)
		for k := range s.Selected {
			set[k] = true
		}
		if set[country] {
			delete(set, country)
		} else {
			set[country] = true
		}
		s.Selected = set
		return s
	}), nil
}

func (c *CountrySelection) Clear() SelectionState {
	return c.store.Update(func(s SelectionState) SelectionState {
		s.Selected = map[string]bool{}
		return s
	})
}

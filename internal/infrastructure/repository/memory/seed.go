package memory

import (
	"fmt"
	"os"
	"strings"

	"github.com/riskibarqy/best-odds/internal/domain/league"
	"gopkg.in/yaml.v3"
)

func SeedLeagues() []league.League {
	return []league.League{
		{Key: "soccer_epl", Name: "Premier League"},
		{Key: "soccer_spain_la_liga", Name: "La Liga (Hiszpania)"},
		{Key: "soccer_italy_serie_a", Name: "Serie A (Włochy)"},
		{Key: "soccer_germany_bundesliga", Name: "Bundesliga (Niemcy)"},
		{Key: "soccer_france_ligue_one", Name: "Ligue 1 (Francja)"},
	}
}

type leaguesFile struct {
	Leagues []league.League `yaml:"leagues"`
}

// LoadLeagues returns the leagues listed in the YAML file at path, or the
// seed list when path is empty.
//
//	leagues:
//	  - key: soccer_epl
//	    name: Premier League
func LoadLeagues(path string) ([]league.League, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return SeedLeagues(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read leagues file: %w", err)
	}
	return ParseLeagues(raw)
}

func ParseLeagues(raw []byte) ([]league.League, error) {
	var file leaguesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse leagues file: %w", err)
	}
	if len(file.Leagues) == 0 {
		return nil, fmt.Errorf("leagues file lists no leagues")
	}

	out := make([]league.League, 0, len(file.Leagues))
	for _, item := range file.Leagues {
		item.Key = strings.TrimSpace(item.Key)
		item.Name = strings.TrimSpace(item.Name)
		if err := item.Validate(); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

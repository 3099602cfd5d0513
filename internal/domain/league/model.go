package league

import "fmt"

// League is a football competition whose odds are aggregated.
// Key is the provider sport key, Name is what the board shows.
type League struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
}

func (l League) Validate() error {
	if l.Key == "" {
		return fmt.Errorf("league key is required")
	}
	if l.Name == "" {
		return fmt.Errorf("league name is required for key=%s", l.Key)
	}

	return nil
}

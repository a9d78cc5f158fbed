package client

import (
	_ "embed"
	"encoding/json"

	"recipehub/domain"
)

// The bundled dataset ships with the client and backs every read in
// degraded mode. It is a static snapshot, not a cache of live data.
//
//go:embed fallback.json
var fallbackData []byte

func loadFallbackDataset() ([]domain.Recipe, error) {
	var recipes []domain.Recipe
	if err := json.Unmarshal(fallbackData, &recipes); err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Normalize()
	}
	return recipes, nil
}

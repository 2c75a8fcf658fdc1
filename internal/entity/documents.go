package entity

import (
	"encoding/json"
	"fmt"
)

// RegistrarResult is the outcome of the register-office navigation task.
type RegistrarResult struct {
	NavigatedURL     string  `json:"navigated_url"`
	PageTitle        string  `json:"page_title"`
	FormDetected     bool    `json:"form_detected"`
	NextActionAdvice string  `json:"next_action_advice"`
	ScreenshotPath   string  `json:"screenshot_path"`
	RegistrarPage    *string `json:"registrar_page"`
}

type CatalogueEntry struct {
	Name     string   `json:"name"`
	Price    *string  `json:"price"`
	Rating   *float64 `json:"rating"`
	Location string   `json:"location"`
	Link     string   `json:"link"`
}

type CatalogueCategory struct {
	PriceRange *string          `json:"price_range"`
	Summary    []CatalogueEntry `json:"summary"`
}

type CatalogueMetadata struct {
	QueryLocation   string  `json:"query_location"`
	SearchTimestamp string  `json:"search_timestamp"`
	Currency        *string `json:"currency"`
	Notes           *string `json:"notes"`
}

// Catalogue is a listing result: any number of named categories plus metadata.
type Catalogue struct {
	Categories map[string]CatalogueCategory
	Metadata   CatalogueMetadata
}

const catalogueMetadataKey = "metadata"

func (c *Catalogue) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Categories = make(map[string]CatalogueCategory, len(raw))

	for key, value := range raw {
		if key == catalogueMetadataKey {
			if err := json.Unmarshal(value, &c.Metadata); err != nil {
				return fmt.Errorf("metadata: %w", err)
			}

			continue
		}

		var category CatalogueCategory
		if err := json.Unmarshal(value, &category); err != nil {
			return fmt.Errorf("category %q: %w", key, err)
		}

		c.Categories[key] = category
	}

	return nil
}

func (c Catalogue) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Categories)+1)
	for key, category := range c.Categories {
		out[key] = category
	}

	out[catalogueMetadataKey] = c.Metadata

	return json.Marshal(out)
}

type Organisation struct {
	Name    string  `json:"name"`
	Website string  `json:"website"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
}

// OrganisationDirectory lists organisations to notify after a death.
type OrganisationDirectory struct {
	Banks      []Organisation `json:"banks"`
	Insurers   []Organisation `json:"insurers"`
	Utilities  []Organisation `json:"utilities"`
	Telecom    []Organisation `json:"telecom"`
	Government []Organisation `json:"government"`
	Others     []Organisation `json:"others"`
}

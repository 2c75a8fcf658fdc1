package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueSplitsMetadataFromCategories(t *testing.T) {
	raw := `{
		"cremation": {"price_range": "£1,095-£2,500", "summary": [
			{"name": "Stratford Funerals", "price": "£1,095", "rating": 4.8, "location": "Stratford", "link": "https://example.co.uk"}
		]},
		"woodland": {"price_range": null, "summary": []},
		"metadata": {"query_location": "Stratford, London, UK", "search_timestamp": "2025-01-01T00:00:00Z", "currency": "GBP", "notes": null}
	}`

	var catalogue Catalogue
	require.NoError(t, json.Unmarshal([]byte(raw), &catalogue))

	require.Len(t, catalogue.Categories, 2)
	cremation := catalogue.Categories["cremation"]
	require.Len(t, cremation.Summary, 1)
	assert.Equal(t, "Stratford Funerals", cremation.Summary[0].Name)
	require.NotNil(t, cremation.Summary[0].Rating)
	assert.InDelta(t, 4.8, *cremation.Summary[0].Rating, 0.0001)
	assert.Nil(t, catalogue.Categories["woodland"].PriceRange)
	assert.Equal(t, "Stratford, London, UK", catalogue.Metadata.QueryLocation)
	assert.Nil(t, catalogue.Metadata.Notes)

	encoded, err := json.Marshal(catalogue)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(encoded, &generic))
	assert.Contains(t, generic, "metadata")
	assert.Contains(t, generic, "cremation")
	assert.Contains(t, generic, "woodland")
}

func TestCatalogueRejectsMalformedCategory(t *testing.T) {
	var catalogue Catalogue
	err := json.Unmarshal([]byte(`{"burial": "cheap", "metadata": {}}`), &catalogue)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `category "burial"`)
}

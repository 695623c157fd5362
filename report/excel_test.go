package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"company-risk-poc/geo"
	"company-risk-poc/registry"
	"company-risk-poc/risk"
)

func sampleInput() Input {
	return Input{
		Company: registry.Company{
			CNPJ:      "12345678000195",
			LegalName: "Magazine Luiza Comercio Ltda",
			TradeName: "Magalu",
			Email:     "contato@magazineluiza.com.br",
			Activities: []registry.Activity{
				{Code: "4711301", Description: "Hipermercados"},
				{Code: "4712100", Description: "Minimercados"},
			},
		},
		Location: geo.Location{
			Lat: -20.53, Lng: -47.40,
			FormattedAddress: "Rua das Flores, 100 - Franca, SP",
			PlaceID:          "ChIJabc123",
		},
		Observation: risk.VisualObservation{
			ApparentZone:           risk.ZoneResidential,
			RoadType:               risk.RoadDirt,
			HasResidentialHouses:   true,
			CNAECompatibility:      risk.CompatibilityLow,
			IncompatibilityReasons: []string{"residential street, no commerce in sight"},
			DetailedAnalysis:       "Single-family houses along an unpaved road.",
		},
		Assessment: risk.RiskAssessment{
			ExpectedType: risk.LocationCommercial,
			Flags:        []string{risk.FlagZoneMismatchCommercialResidential, risk.FlagLowAICompatibility},
			Score:        100,
			Category:     risk.CategoryHigh,
		},
		GeneratedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	}
}

func TestGenerateProducesReadableWorkbook(t *testing.T) {
	xlsx, err := Generate(sampleInput())
	require.NoError(t, err)
	require.NotEmpty(t, xlsx)

	f, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "RISK ASSESSMENT REPORT", title)

	cells, err := f.SearchSheet(sheetName, "HIGH (score: 100/100)")
	require.NoError(t, err)
	assert.NotEmpty(t, cells, "verdict cell missing")

	cells, err = f.SearchSheet(sheetName, "12.345.678/0001-95")
	require.NoError(t, err)
	assert.NotEmpty(t, cells, "formatted CNPJ missing")

	cells, err = f.SearchSheet(sheetName, risk.FlagZoneMismatchCommercialResidential)
	require.NoError(t, err)
	assert.NotEmpty(t, cells, "risk flag row missing")
}

func TestGenerateUnknownCategoryFallsBack(t *testing.T) {
	in := sampleInput()
	in.Assessment.Category = ""
	in.Assessment.Score = 0

	xlsx, err := Generate(in)
	require.NoError(t, err)
	assert.NotEmpty(t, xlsx)
}

func TestGenerateEmptyLocation(t *testing.T) {
	in := sampleInput()
	in.Location = geo.Location{}

	xlsx, err := Generate(in)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	defer f.Close()

	cells, err := f.SearchSheet(sheetName, "Address not resolved")
	require.NoError(t, err)
	assert.NotEmpty(t, cells)
}

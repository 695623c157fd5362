// Package report renders risk assessments as downloadable Excel workbooks.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"company-risk-poc/geo"
	"company-risk-poc/registry"
	"company-risk-poc/risk"
)

const sheetName = "Risk Assessment"

// Input carries everything the workbook renders. Location and Observation
// may hold zero values when the pipeline could not produce them.
type Input struct {
	Company     registry.Company
	Location    geo.Location
	Observation risk.VisualObservation
	Assessment  risk.RiskAssessment
	GeneratedAt time.Time
}

type styles struct {
	title      int
	timestamp  int
	section    int
	label      int
	value      int
	tableHead  int
	verdict    map[risk.Category]int
	verdictDef int
}

// Generate renders the assessment workbook and returns the xlsx bytes.
func Generate(in Input) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	st, err := buildStyles(f)
	if err != nil {
		return nil, err
	}

	if err := f.SetColWidth(sheetName, "A", "A", 30); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "D", 25)

	row := 1

	// Title banner and generation timestamp.
	setMerged(f, row, "RISK ASSESSMENT REPORT", st.title)
	row++
	at := in.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	setMerged(f, row, "Generated at: "+at.Format("02/01/2006 15:04:05"), st.timestamp)
	row += 2

	// Company section.
	setMerged(f, row, "1. COMPANY", st.section)
	row++
	row = writePairs(f, st, row, [][2]string{
		{"CNPJ", registry.FormatCNPJ(in.Company.CNPJ)},
		{"Legal Name", orNA(in.Company.LegalName)},
		{"Trade Name", orNA(in.Company.TradeName)},
		{"Email", orNA(in.Company.Email)},
	})
	row++

	// Address section.
	setMerged(f, row, "2. ADDRESS", st.section)
	row++
	if in.Location.FormattedAddress != "" {
		row = writePairs(f, st, row, [][2]string{
			{"Formatted Address", in.Location.FormattedAddress},
			{"Coordinates", fmt.Sprintf("%f, %f", in.Location.Lat, in.Location.Lng)},
			{"Place ID", orNA(in.Location.PlaceID)},
		})
	} else {
		setMerged(f, row, "Address not resolved", st.value)
		row++
	}
	row++

	// Activity table.
	setMerged(f, row, "3. REGISTERED ACTIVITIES", st.section)
	row++
	setCell(f, "A", row, "Type", st.tableHead)
	setCell(f, "B", row, "Code", st.tableHead)
	_ = f.MergeCell(sheetName, cell("C", row), cell("D", row))
	setCell(f, "C", row, "Description", st.tableHead)
	row++
	for i, act := range in.Company.Activities {
		kind := "Secondary"
		if i == 0 {
			kind = "Primary"
		}
		setCell(f, "A", row, kind, st.value)
		setCell(f, "B", row, act.Code, st.value)
		_ = f.MergeCell(sheetName, cell("C", row), cell("D", row))
		setCell(f, "C", row, act.Description, st.value)
		row++
	}
	row++

	// Verdict, colored by category.
	setMerged(f, row, "4. RISK RESULT", st.section)
	row++
	_ = f.MergeCell(sheetName, cell("A", row), cell("B", row))
	setCell(f, "A", row, "FINAL RISK:", st.label)
	_ = f.MergeCell(sheetName, cell("C", row), cell("D", row))
	verdictStyle, ok := st.verdict[in.Assessment.Category]
	if !ok {
		verdictStyle = st.verdictDef
	}
	setCell(f, "C", row,
		fmt.Sprintf("%s (score: %d/100)", in.Assessment.Category, in.Assessment.Score),
		verdictStyle)
	row++
	row = writePairs(f, st, row, [][2]string{
		{"Expected Location Type", string(in.Assessment.ExpectedType)},
	})
	row++

	// Visual analysis.
	setMerged(f, row, "5. VISUAL ANALYSIS", st.section)
	row++
	obs := in.Observation
	row = writePairs(f, st, row, [][2]string{
		{"Apparent Zone", string(obs.ApparentZone)},
		{"Road Type", string(obs.RoadType)},
		{"Commercial Signage", yesNo(obs.HasCommercialSignage)},
		{"Storefronts", yesNo(obs.HasStorefronts)},
		{"Residential Houses", yesNo(obs.HasResidentialHouses)},
		{"Activity Compatibility", string(obs.CNAECompatibility)},
		{"Suggested Risk Level", orNA(obs.SuggestedRiskLevel)},
	})
	if len(obs.IncompatibilityReasons) > 0 {
		row++
		setCell(f, "A", row, "Incompatibility Reasons:", st.label)
		row++
		for i, reason := range obs.IncompatibilityReasons {
			_ = f.MergeCell(sheetName, cell("B", row), cell("D", row))
			setCell(f, "B", row, fmt.Sprintf("%d. %s", i+1, reason), st.value)
			row++
		}
	}
	row++

	// Risk flags.
	if len(in.Assessment.Flags) > 0 {
		setMerged(f, row, "6. RISK FLAGS", st.section)
		row++
		for i, flag := range in.Assessment.Flags {
			setCell(f, "A", row, fmt.Sprintf("%d.", i+1), st.value)
			_ = f.MergeCell(sheetName, cell("B", row), cell("D", row))
			setCell(f, "B", row, flag, st.value)
			row++
		}
		row++
	}

	// Free-form model commentary.
	if obs.DetailedAnalysis != "" {
		setMerged(f, row, "7. DETAILED ANALYSIS", st.section)
		row++
		setMerged(f, row, obs.DetailedAnalysis, st.value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func buildStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	thin := []excelize.Border{
		{Type: "left", Style: 1}, {Type: "right", Style: 1},
		{Type: "top", Style: 1}, {Type: "bottom", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	left := &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true}

	st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 14, Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: center,
	})
	if err != nil {
		return st, err
	}
	st.timestamp, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 9, Italic: true},
		Alignment: center,
	})
	if err != nil {
		return st, err
	}
	st.section, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11, Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Alignment: left,
	})
	if err != nil {
		return st, err
	}
	st.label, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11, Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
		Border:    thin,
		Alignment: left,
	})
	if err != nil {
		return st, err
	}
	st.value, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Border:    thin,
		Alignment: left,
	})
	if err != nil {
		return st, err
	}
	st.tableHead, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11, Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Border:    thin,
		Alignment: center,
	})
	if err != nil {
		return st, err
	}

	st.verdict = make(map[risk.Category]int, 3)
	for cat, colors := range map[risk.Category][2]string{
		risk.CategoryHigh:   {"C00000", "FFFFFF"},
		risk.CategoryMedium: {"FFC000", "000000"},
		risk.CategoryLow:    {"70AD47", "FFFFFF"},
	} {
		id, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Size: 11, Bold: true, Color: colors[1]},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colors[0]}},
			Border:    thin,
			Alignment: center,
		})
		if err != nil {
			return st, err
		}
		st.verdict[cat] = id
	}
	st.verdictDef, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Border:    thin,
		Alignment: center,
	})
	return st, err
}

func cell(col string, row int) string { return fmt.Sprintf("%s%d", col, row) }

func setCell(f *excelize.File, col string, row int, v string, style int) {
	ref := cell(col, row)
	_ = f.SetCellValue(sheetName, ref, v)
	_ = f.SetCellStyle(sheetName, ref, ref, style)
}

// setMerged writes v across A..D on the given row.
func setMerged(f *excelize.File, row int, v string, style int) {
	_ = f.MergeCell(sheetName, cell("A", row), cell("D", row))
	setCell(f, "A", row, v, style)
}

// writePairs emits label/value rows, value spanning B..D, and returns the
// next free row.
func writePairs(f *excelize.File, st styles, row int, pairs [][2]string) int {
	for _, p := range pairs {
		setCell(f, "A", row, p[0], st.label)
		_ = f.MergeCell(sheetName, cell("B", row), cell("D", row))
		setCell(f, "B", row, p[1], st.value)
		row++
	}
	return row
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

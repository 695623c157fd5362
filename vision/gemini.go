package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"

	"company-risk-poc/risk"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Activity is a declared economic activity passed to the model for the
// compatibility call.
type Activity struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GeminiClient analyzes street-level address photos with Gemini Vision.
type GeminiClient struct {
	APIKey     string
	HTTPClient *http.Client
	Model      string
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		APIKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Model: "gemini-2.5-flash",
	}
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiResponseContent `json:"content"`
	FinishReason string                `json:"finishReason"`
}

type geminiResponseContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// observationWire is the strict-JSON shape the prompt demands from the model.
type observationWire struct {
	ApparentZone           string   `json:"apparent_zone"`
	RoadType               string   `json:"road_type"`
	HasCommercialSignage   bool     `json:"has_commercial_signage"`
	HasStorefronts         bool     `json:"has_storefronts"`
	HasResidentialHouses   bool     `json:"has_residential_houses"`
	CNAECompatibility      string   `json:"cnae_compatibility"`
	IncompatibilityReasons []string `json:"incompatibility_reasons"`
	SuggestedRiskLevel     string   `json:"suggested_risk_level"`
	DetailedAnalysis       string   `json:"detailed_analysis"`
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// AnalyzeAddressImage sends the address photo and the company's activity list
// to Gemini and parses the structured observation. On any failure it returns
// the neutral observation together with the error; callers treat the result
// as best-effort enrichment.
func (c *GeminiClient) AnalyzeAddressImage(ctx context.Context, image []byte, activities []Activity, legalName, tradeName string) (risk.VisualObservation, error) {
	if c.APIKey == "" {
		return risk.NeutralObservation(), fmt.Errorf("GEMINI_API_KEY not configured")
	}
	if len(image) == 0 {
		return risk.NeutralObservation(), fmt.Errorf("no image provided")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", geminiBaseURL, c.Model, c.APIKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: buildPrompt(activities, legalName, tradeName)},
				{InlineData: &geminiInlineData{
					MimeType: detectMimeType(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.3,
			MaxOutputTokens:  4096,
			ResponseMimeType: "application/json",
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return risk.NeutralObservation(), fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return risk.NeutralObservation(), fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return risk.NeutralObservation(), fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return risk.NeutralObservation(), fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return risk.NeutralObservation(), fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return risk.NeutralObservation(), fmt.Errorf("unmarshal response: %w", err)
	}
	if response.Error != nil {
		return risk.NeutralObservation(), fmt.Errorf("gemini API error: %s", response.Error.Message)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return risk.NeutralObservation(), fmt.Errorf("empty response from gemini")
	}

	text := response.Candidates[0].Content.Parts[0].Text
	obs, err := ParseObservation(text)
	if err != nil {
		log.Printf("[vision] unparseable model reply: %v", err)
		return risk.NeutralObservation(), err
	}
	return obs, nil
}

// ParseObservation extracts and validates the observation JSON from a model
// reply, tolerating stray text around the JSON block.
func ParseObservation(text string) (risk.VisualObservation, error) {
	raw := text
	if m := jsonBlockRe.FindString(text); m != "" {
		raw = m
	}

	var wire observationWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return risk.NeutralObservation(), fmt.Errorf("decode observation: %w", err)
	}

	return risk.VisualObservation{
		ApparentZone:           normalizeZone(wire.ApparentZone),
		RoadType:               normalizeRoad(wire.RoadType),
		HasCommercialSignage:   wire.HasCommercialSignage,
		HasStorefronts:         wire.HasStorefronts,
		HasResidentialHouses:   wire.HasResidentialHouses,
		CNAECompatibility:      normalizeCompatibility(wire.CNAECompatibility),
		IncompatibilityReasons: wire.IncompatibilityReasons,
		SuggestedRiskLevel:     wire.SuggestedRiskLevel,
		DetailedAnalysis:       wire.DetailedAnalysis,
	}, nil
}

func normalizeZone(s string) risk.Zone {
	switch risk.Zone(s) {
	case risk.ZoneCommercial, risk.ZoneResidential, risk.ZoneIndustrial, risk.ZoneRural:
		return risk.Zone(s)
	default:
		return risk.ZoneUnknown
	}
}

func normalizeRoad(s string) risk.RoadType {
	switch risk.RoadType(s) {
	case risk.RoadPaved, risk.RoadDirt:
		return risk.RoadType(s)
	default:
		return risk.RoadNotVisible
	}
}

func normalizeCompatibility(s string) risk.Compatibility {
	switch risk.Compatibility(s) {
	case risk.CompatibilityHigh, risk.CompatibilityMedium, risk.CompatibilityLow:
		return risk.Compatibility(s)
	default:
		return risk.CompatibilityUnknown
	}
}

func detectMimeType(image []byte) string {
	switch {
	case bytes.HasPrefix(image, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(image, []byte("GIF")):
		return "image/gif"
	case bytes.HasPrefix(image, []byte("RIFF")):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
)

const cnpjaBaseURL = "https://api.cnpja.com"

// Activity is a declared economic activity (CNAE) from the registry record.
type Activity struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Company is the normalized registry record the assessment pipeline consumes.
type Company struct {
	CNPJ       string     `json:"cnpj"`
	LegalName  string     `json:"legal_name"`
	TradeName  string     `json:"trade_name,omitempty"`
	Email      string     `json:"email,omitempty"`
	Address    string     `json:"address,omitempty"`
	Activities []Activity `json:"activities"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// PrimaryActivity returns the main declared activity, if any.
func (c Company) PrimaryActivity() (Activity, bool) {
	if len(c.Activities) == 0 {
		return Activity{}, false
	}
	return c.Activities[0], true
}

// Client queries the CNPJA company registry API.
type Client struct {
	APIKey     string
	HTTPClient *http.Client
	BaseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    cnpjaBaseURL,
	}
}

// officeWire mirrors the relevant slice of the CNPJA office payload.
type officeWire struct {
	Alias   string `json:"alias"`
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Name         string `json:"name"`
	MainActivity *struct {
		ID   json.Number `json:"id"`
		Text string      `json:"text"`
	} `json:"mainActivity"`
	SideActivities []struct {
		ID   json.Number `json:"id"`
		Text string      `json:"text"`
	} `json:"sideActivities"`
	Emails []struct {
		Address string `json:"address"`
	} `json:"emails"`
	Address struct {
		Street   string `json:"street"`
		Number   string `json:"number"`
		District string `json:"district"`
		City     string `json:"city"`
		State    string `json:"state"`
		Zip      string `json:"zip"`
	} `json:"address"`
}

// CleanCNPJ keeps only the digits of a CNPJ.
func CleanCNPJ(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCNPJ renders a 14-digit CNPJ as XX.XXX.XXX/XXXX-XX.
func FormatCNPJ(cnpj string) string {
	c := CleanCNPJ(cnpj)
	if len(c) != 14 {
		return c
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", c[:2], c[2:5], c[5:8], c[8:12], c[12:])
}

// Lookup fetches the registry record for a CNPJ.
func (c *Client) Lookup(ctx context.Context, cnpj string) (Company, error) {
	clean := CleanCNPJ(cnpj)
	if len(clean) != 14 {
		return Company{}, fmt.Errorf("invalid CNPJ: expected 14 digits, got %d", len(clean))
	}
	if c.APIKey == "" {
		return Company{}, fmt.Errorf("CNPJA_API_KEY not configured")
	}

	url := fmt.Sprintf("%s/office/%s", c.BaseURL, clean)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Company{}, fmt.Errorf("create request: %w", err)
	}
	// CNPJA takes the raw token, no Bearer prefix.
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Company{}, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Company{}, fmt.Errorf("CNPJ %s not found in registry", FormatCNPJ(clean))
	case http.StatusUnauthorized:
		return Company{}, fmt.Errorf("registry API key invalid or expired")
	case http.StatusTooManyRequests:
		return Company{}, fmt.Errorf("registry rate limit exceeded")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Company{}, fmt.Errorf("registry error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wire officeWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Company{}, fmt.Errorf("decode registry response: %w", err)
	}
	return wire.toCompany(clean), nil
}

func (w officeWire) toCompany(cnpj string) Company {
	out := Company{
		CNPJ:      cnpj,
		LegalName: w.Company.Name,
		TradeName: w.Alias,
		FetchedAt: time.Now().UTC(),
	}
	if out.LegalName == "" {
		out.LegalName = w.Name
	}

	if w.MainActivity != nil {
		out.Activities = append(out.Activities, Activity{
			Code:        activityCode(w.MainActivity.ID.String()),
			Description: w.MainActivity.Text,
		})
	}
	for _, sec := range w.SideActivities {
		out.Activities = append(out.Activities, Activity{
			Code:        activityCode(sec.ID.String()),
			Description: sec.Text,
		})
	}

	if len(w.Emails) > 0 {
		out.Email = strings.ToLower(strings.TrimSpace(w.Emails[0].Address))
	}

	var parts []string
	for _, p := range []string{
		strings.TrimSpace(w.Address.Street + " " + w.Address.Number),
		w.Address.District, w.Address.City, w.Address.State, w.Address.Zip,
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		out.Address = strings.Join(append(parts, "Brasil"), ", ")
	}
	return out
}

// activityCode truncates a CNPJA activity id to the 7-digit CNAE code.
func activityCode(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

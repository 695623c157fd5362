// Package assess orchestrates the full entity risk evaluation pipeline.
package assess

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"company-risk-poc/domaincheck"
	"company-risk-poc/geo"
	"company-risk-poc/registry"
	"company-risk-poc/risk"
	"company-risk-poc/store"
	"company-risk-poc/vision"
)

// RegistryClient fetches official registry records.
type RegistryClient interface {
	Lookup(ctx context.Context, cnpj string) (registry.Company, error)
}

// ImageSource resolves a street-level photo for a postal address.
type ImageSource interface {
	AddressImage(ctx context.Context, address string) (geo.Location, []byte, error)
}

// VisionAnalyzer turns an address photo into a structured observation.
type VisionAnalyzer interface {
	AnalyzeAddressImage(ctx context.Context, image []byte, activities []vision.Activity, legalName, tradeName string) (risk.VisualObservation, error)
}

// DomainAgeChecker reports registrar age for an email's domain.
type DomainAgeChecker interface {
	CheckEmailAge(email string, minAgeDays int) domaincheck.AgeResult
}

// Storage is the slice of the persistence layer the pipeline touches.
type Storage interface {
	CachedCompany(ctx context.Context, cnpj string) (registry.Company, error)
	SaveCompany(ctx context.Context, c registry.Company) error
	LocationTypeOverride(ctx context.Context, code string) (risk.LocationType, bool)
	RegisteredEmail(ctx context.Context, cnpj string) (string, error)
	SaveRegisteredEmail(ctx context.Context, cnpj, email string) error
	AddressImage(ctx context.Context, cnpj string) ([]byte, error)
	SaveAddressImage(ctx context.Context, cnpj string, image []byte, source string) error
	SaveAssessment(ctx context.Context, cnpj string, payload any, score int, category risk.Category) error
	LatestAssessment(ctx context.Context, cnpj string) (store.StoredAssessment, error)
	WhoisMinDays(ctx context.Context, fallback int) int
	NonCorporateDomains(ctx context.Context) []string
}

// Service wires the collaborators of a single assessment run. Store may be
// nil; the pipeline then runs without cache, overrides or persistence.
type Service struct {
	Store    Storage
	Registry RegistryClient
	Geo      ImageSource
	Vision   VisionAnalyzer
	Ages     DomainAgeChecker

	WhoisMinDays int
}

// Request is one assessment order. The image and registered email are
// optional; missing pieces degrade to neutral findings, never to a failure.
type Request struct {
	CNPJ            string `json:"cnpj"`
	ImageBase64     string `json:"image_base64,omitempty"`
	RegisteredEmail string `json:"registered_email,omitempty"`
	ForceRefresh    bool   `json:"force_refresh,omitempty"`
}

// Result is the full pipeline output, also the persisted payload.
type Result struct {
	CNPJ           string                    `json:"cnpj"`
	Company        registry.Company          `json:"company"`
	Location       geo.Location              `json:"location,omitempty"`
	ImageSource    string                    `json:"image_source,omitempty"`
	Observation    risk.VisualObservation    `json:"visual_observation"`
	VisionError    string                    `json:"vision_error,omitempty"`
	Typosquatting  *risk.TyposquattingResult `json:"typosquatting,omitempty"`
	DomainAge      *domaincheck.AgeResult    `json:"domain_age,omitempty"`
	CorporateEmail *bool                     `json:"corporate_email,omitempty"`
	Assessment     risk.RiskAssessment       `json:"assessment"`
	AssessedAt     time.Time                 `json:"assessed_at"`
}

const (
	imageSourceUpload     = "upload"
	imageSourceStored     = "stored"
	imageSourceStreetView = "street_view"
)

// Assess runs the whole pipeline for one entity.
func (s *Service) Assess(ctx context.Context, req Request) (Result, error) {
	cnpj := registry.CleanCNPJ(req.CNPJ)
	if len(cnpj) != 14 {
		return Result{}, fmt.Errorf("invalid CNPJ: expected 14 digits, got %d", len(cnpj))
	}

	company, err := s.company(ctx, cnpj, req.ForceRefresh)
	if err != nil {
		return Result{}, err
	}

	out := Result{CNPJ: cnpj, Company: company, AssessedAt: time.Now().UTC()}

	// Address photo: caller upload wins, then the stored copy, then the
	// geocode/Street View chain.
	image, loc, source := s.resolveImage(ctx, cnpj, req, company)
	out.Location = loc
	out.ImageSource = source

	// Vision analysis is best-effort. A failure leaves a neutral
	// observation so the rule engine still runs.
	obs := risk.NeutralObservation()
	if len(image) > 0 && s.Vision != nil {
		var verr error
		obs, verr = s.Vision.AnalyzeAddressImage(ctx, image, visionActivities(company), company.LegalName, company.TradeName)
		if verr != nil {
			log.Printf("[assess] vision analysis failed for %s: %v", registry.FormatCNPJ(cnpj), verr)
			out.VisionError = verr.Error()
		}
	}
	out.Observation = obs

	classifier := risk.NewClassifier(s.overrideLookup(ctx))
	expected := risk.LocationUnknown
	if primary, ok := company.PrimaryActivity(); ok {
		expected = classifier.Classify(primary.Code)
	}

	rules := risk.EvaluateRules(obs, expected)

	// Domain checks run in parallel and never fail the assessment.
	registeredEmail := s.registeredEmail(ctx, cnpj, req)
	s.domainChecks(ctx, &out, registeredEmail, company.Email)

	out.Assessment = risk.Aggregate(expected, rules, out.Typosquatting)

	if s.Store != nil {
		if err := s.Store.SaveAssessment(ctx, cnpj, out, out.Assessment.Score, out.Assessment.Category); err != nil {
			log.Printf("[assess] persist failed for %s: %v", registry.FormatCNPJ(cnpj), err)
		}
	}

	log.Printf("[assess] %s: score=%d category=%s flags=%d",
		registry.FormatCNPJ(cnpj), out.Assessment.Score, out.Assessment.Category, len(out.Assessment.Flags))
	return out, nil
}

// company returns the registry record, cache first unless a refresh was
// forced.
func (s *Service) company(ctx context.Context, cnpj string, forceRefresh bool) (registry.Company, error) {
	if s.Store != nil && !forceRefresh {
		if c, err := s.Store.CachedCompany(ctx, cnpj); err == nil {
			return c, nil
		}
	}
	c, err := s.Registry.Lookup(ctx, cnpj)
	if err != nil {
		return registry.Company{}, err
	}
	if s.Store != nil {
		if err := s.Store.SaveCompany(ctx, c); err != nil {
			log.Printf("[assess] registry cache write failed: %v", err)
		}
	}
	return c, nil
}

func (s *Service) resolveImage(ctx context.Context, cnpj string, req Request, company registry.Company) ([]byte, geo.Location, string) {
	if req.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			log.Printf("[assess] discarding undecodable uploaded image: %v", err)
		} else if len(img) > 0 {
			s.saveImage(ctx, cnpj, img, imageSourceUpload)
			return img, geo.Location{}, imageSourceUpload
		}
	}

	if s.Store != nil {
		if img, err := s.Store.AddressImage(ctx, cnpj); err == nil && len(img) > 0 {
			return img, geo.Location{}, imageSourceStored
		}
	}

	if s.Geo != nil && company.Address != "" {
		loc, img, err := s.Geo.AddressImage(ctx, company.Address)
		if err != nil {
			log.Printf("[assess] address image unavailable for %s: %v", registry.FormatCNPJ(cnpj), err)
			return nil, loc, ""
		}
		s.saveImage(ctx, cnpj, img, imageSourceStreetView)
		return img, loc, imageSourceStreetView
	}

	return nil, geo.Location{}, ""
}

func (s *Service) saveImage(ctx context.Context, cnpj string, img []byte, source string) {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveAddressImage(ctx, cnpj, img, source); err != nil {
		log.Printf("[assess] image store failed: %v", err)
	}
}

func (s *Service) overrideLookup(ctx context.Context) risk.OverrideLookup {
	if s.Store == nil {
		return nil
	}
	return func(code string) (risk.LocationType, bool) {
		return s.Store.LocationTypeOverride(ctx, code)
	}
}

// registeredEmail is the email the entity supplied at onboarding, either in
// the request or previously stored.
func (s *Service) registeredEmail(ctx context.Context, cnpj string, req Request) string {
	if req.RegisteredEmail != "" {
		if s.Store != nil {
			if err := s.Store.SaveRegisteredEmail(ctx, cnpj, req.RegisteredEmail); err != nil {
				log.Printf("[assess] registered email store failed: %v", err)
			}
		}
		return req.RegisteredEmail
	}
	if s.Store != nil {
		if email, err := s.Store.RegisteredEmail(ctx, cnpj); err == nil {
			return email
		}
	}
	return ""
}

// domainChecks fills the typosquatting, registrar age and corporate-domain
// findings. Everything here is best-effort.
func (s *Service) domainChecks(ctx context.Context, out *Result, registeredEmail, registryEmail string) {
	registeredDomain := domaincheck.ExtractDomain(registeredEmail)
	referenceDomain := domaincheck.ExtractDomain(registryEmail)

	minDays := s.WhoisMinDays
	if minDays <= 0 {
		minDays = domaincheck.DefaultMinAgeDays
	}
	var nonCorporate []string
	if s.Store != nil {
		minDays = s.Store.WhoisMinDays(ctx, minDays)
		nonCorporate = s.Store.NonCorporateDomains(ctx)
	}

	g, _ := errgroup.WithContext(ctx)

	if registeredDomain != "" && referenceDomain != "" {
		g.Go(func() error {
			res := risk.DetectTyposquatting(registeredDomain, referenceDomain, risk.DefaultSimilarityThreshold)
			out.Typosquatting = &res
			return nil
		})
	}

	if email := firstNonEmpty(registeredEmail, registryEmail); email != "" {
		if s.Ages != nil {
			g.Go(func() error {
				res := s.Ages.CheckEmailAge(email, minDays)
				out.DomainAge = &res
				return nil
			})
		}
		g.Go(func() error {
			corporate := domaincheck.IsCorporateDomain(domaincheck.ExtractDomain(email), nonCorporate)
			out.CorporateEmail = &corporate
			return nil
		})
	}

	_ = g.Wait()
}

func visionActivities(c registry.Company) []vision.Activity {
	out := make([]vision.Activity, 0, len(c.Activities))
	for _, a := range c.Activities {
		out = append(out, vision.Activity{Code: a.Code, Description: a.Description})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

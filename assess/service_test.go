package assess

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-risk-poc/domaincheck"
	"company-risk-poc/geo"
	"company-risk-poc/registry"
	"company-risk-poc/risk"
	"company-risk-poc/store"
	"company-risk-poc/vision"
)

type stubRegistry struct {
	company registry.Company
	err     error
	calls   int
}

func (s *stubRegistry) Lookup(_ context.Context, _ string) (registry.Company, error) {
	s.calls++
	return s.company, s.err
}

type stubVision struct {
	obs risk.VisualObservation
	err error
}

func (s *stubVision) AnalyzeAddressImage(_ context.Context, _ []byte, _ []vision.Activity, _, _ string) (risk.VisualObservation, error) {
	if s.err != nil {
		return risk.NeutralObservation(), s.err
	}
	return s.obs, nil
}

type stubGeo struct {
	loc geo.Location
	img []byte
	err error
}

func (s *stubGeo) AddressImage(_ context.Context, _ string) (geo.Location, []byte, error) {
	return s.loc, s.img, s.err
}

type stubAges struct{ res domaincheck.AgeResult }

func (s *stubAges) CheckEmailAge(_ string, _ int) domaincheck.AgeResult { return s.res }

// memStore is an in-memory Storage for pipeline tests.
type memStore struct {
	companies map[string]registry.Company
	overrides map[string]risk.LocationType
	emails    map[string]string
	images    map[string][]byte
	lastScore int
	lastCat   risk.Category
	lastSaved []byte
	savedCNPJ string
}

func newMemStore() *memStore {
	return &memStore{
		companies: map[string]registry.Company{},
		overrides: map[string]risk.LocationType{},
		emails:    map[string]string{},
		images:    map[string][]byte{},
	}
}

func (m *memStore) CachedCompany(_ context.Context, cnpj string) (registry.Company, error) {
	c, ok := m.companies[cnpj]
	if !ok {
		return registry.Company{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) SaveCompany(_ context.Context, c registry.Company) error {
	m.companies[c.CNPJ] = c
	return nil
}

func (m *memStore) LocationTypeOverride(_ context.Context, code string) (risk.LocationType, bool) {
	t, ok := m.overrides[risk.CleanActivityCode(code)]
	return t, ok
}

func (m *memStore) RegisteredEmail(_ context.Context, cnpj string) (string, error) {
	e, ok := m.emails[cnpj]
	if !ok {
		return "", store.ErrNotFound
	}
	return e, nil
}

func (m *memStore) SaveRegisteredEmail(_ context.Context, cnpj, email string) error {
	m.emails[cnpj] = email
	return nil
}

func (m *memStore) AddressImage(_ context.Context, cnpj string) ([]byte, error) {
	img, ok := m.images[cnpj]
	if !ok {
		return nil, store.ErrNotFound
	}
	return img, nil
}

func (m *memStore) SaveAddressImage(_ context.Context, cnpj string, image []byte, _ string) error {
	m.images[cnpj] = image
	return nil
}

func (m *memStore) SaveAssessment(_ context.Context, cnpj string, payload any, score int, category risk.Category) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.savedCNPJ = cnpj
	m.lastSaved = raw
	m.lastScore = score
	m.lastCat = category
	return nil
}

func (m *memStore) LatestAssessment(_ context.Context, cnpj string) (store.StoredAssessment, error) {
	if m.lastSaved == nil || m.savedCNPJ != registry.CleanCNPJ(cnpj) {
		return store.StoredAssessment{}, store.ErrNotFound
	}
	return store.StoredAssessment{
		CNPJ:     m.savedCNPJ,
		Payload:  m.lastSaved,
		Score:    m.lastScore,
		Category: string(m.lastCat),
	}, nil
}

func (m *memStore) WhoisMinDays(_ context.Context, fallback int) int { return fallback }

func (m *memStore) NonCorporateDomains(_ context.Context) []string { return nil }

const testCNPJ = "12.345.678/0001-95"

func retailCompany(email string) registry.Company {
	return registry.Company{
		CNPJ:      "12345678000195",
		LegalName: "Magazine Luiza Comercio Ltda",
		TradeName: "Magalu",
		Email:     email,
		Address:   "Rua das Flores 100, Centro, Franca, SP, 14400-000, Brasil",
		Activities: []registry.Activity{
			{Code: "4711301", Description: "Hipermercados"},
		},
	}
}

func fakeImage() string {
	return base64.StdEncoding.EncodeToString([]byte("\xff\xd8\xfffake-jpeg"))
}

func TestAssessWorstCaseScenario(t *testing.T) {
	st := newMemStore()
	svc := &Service{
		Store:    st,
		Registry: &stubRegistry{company: retailCompany("contato@magazineluiza.com.br")},
		Vision: &stubVision{obs: risk.VisualObservation{
			ApparentZone:         risk.ZoneResidential,
			RoadType:             risk.RoadDirt,
			HasResidentialHouses: true,
			CNAECompatibility:    risk.CompatibilityLow,
		}},
		Ages: &stubAges{},
	}

	res, err := svc.Assess(context.Background(), Request{
		CNPJ:            testCNPJ,
		ImageBase64:     fakeImage(),
		RegisteredEmail: "financeiro@magazineluisa.com.br",
	})
	require.NoError(t, err)

	assert.Equal(t, risk.LocationCommercial, res.Assessment.ExpectedType)
	require.NotNil(t, res.Typosquatting)
	assert.True(t, res.Typosquatting.IsSuspicious)

	// Rules 1-5 all fire (30+25+22+20+35) plus the typosquatting penalty,
	// clamped to 100.
	assert.Equal(t, 100, res.Assessment.Score)
	assert.Equal(t, risk.CategoryHigh, res.Assessment.Category)
	assert.Contains(t, res.Assessment.Flags, risk.FlagTyposquattingDetected)

	// Persisted with the same verdict.
	assert.Equal(t, 100, st.lastScore)
	assert.Equal(t, risk.CategoryHigh, st.lastCat)
	rec, err := st.LatestAssessment(context.Background(), testCNPJ)
	require.NoError(t, err)
	var stored Result
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.Equal(t, res.Assessment, stored.Assessment)
}

func TestAssessVisionFailureDegradesToNeutral(t *testing.T) {
	svc := &Service{
		Store:    newMemStore(),
		Registry: &stubRegistry{company: retailCompany("")},
		Vision:   &stubVision{err: errors.New("model timeout")},
		Ages:     &stubAges{},
	}

	res, err := svc.Assess(context.Background(), Request{CNPJ: testCNPJ, ImageBase64: fakeImage()})
	require.NoError(t, err)

	assert.NotEmpty(t, res.VisionError)
	assert.Equal(t, risk.ZoneUnknown, res.Observation.ApparentZone)
	assert.Nil(t, res.Typosquatting)

	// Neutral observation still yields no-signage (22) and undefined-zone
	// (10) findings for a commercial activity.
	assert.Equal(t, 32, res.Assessment.Score)
	assert.Equal(t, risk.CategoryMedium, res.Assessment.Category)
}

func TestAssessInvalidCNPJ(t *testing.T) {
	svc := &Service{Registry: &stubRegistry{}}
	_, err := svc.Assess(context.Background(), Request{CNPJ: "12.345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CNPJ")
}

func TestAssessRegistryCacheFirst(t *testing.T) {
	st := newMemStore()
	st.companies["12345678000195"] = retailCompany("")
	reg := &stubRegistry{err: errors.New("registry down")}

	svc := &Service{Store: st, Registry: reg, Vision: &stubVision{}, Ages: &stubAges{}}
	res, err := svc.Assess(context.Background(), Request{CNPJ: testCNPJ, ImageBase64: fakeImage()})
	require.NoError(t, err)
	assert.Equal(t, 0, reg.calls)
	assert.Equal(t, "Magazine Luiza Comercio Ltda", res.Company.LegalName)
}

func TestAssessForceRefreshSkipsCache(t *testing.T) {
	st := newMemStore()
	stale := retailCompany("")
	stale.LegalName = "Old Name Ltda"
	st.companies["12345678000195"] = stale
	reg := &stubRegistry{company: retailCompany("")}

	svc := &Service{Store: st, Registry: reg, Vision: &stubVision{}, Ages: &stubAges{}}
	res, err := svc.Assess(context.Background(), Request{CNPJ: testCNPJ, ImageBase64: fakeImage(), ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.calls)
	assert.Equal(t, "Magazine Luiza Comercio Ltda", res.Company.LegalName)
}

func TestAssessOverrideWins(t *testing.T) {
	st := newMemStore()
	st.overrides["4711301"] = risk.LocationOffice

	svc := &Service{
		Store:    st,
		Registry: &stubRegistry{company: retailCompany("")},
		Vision: &stubVision{obs: risk.VisualObservation{
			ApparentZone:         risk.ZoneResidential,
			RoadType:             risk.RoadPaved,
			HasCommercialSignage: true,
			CNAECompatibility:    risk.CompatibilityUnknown,
		}},
		Ages: &stubAges{},
	}

	res, err := svc.Assess(context.Background(), Request{CNPJ: testCNPJ, ImageBase64: fakeImage()})
	require.NoError(t, err)

	assert.Equal(t, risk.LocationOffice, res.Assessment.ExpectedType)
	assert.Contains(t, res.Assessment.Flags, risk.FlagOfficeInResidentialHomeOffice)
	assert.Equal(t, 5, res.Assessment.Score)
	assert.Equal(t, risk.CategoryLow, res.Assessment.Category)
}

func TestAssessGeoChainWhenNoUpload(t *testing.T) {
	g := &stubGeo{
		loc: geo.Location{Lat: -20.53, Lng: -47.40, FormattedAddress: "Rua das Flores, 100", PlaceID: "abc"},
		img: []byte("street-view-bytes"),
	}
	st := newMemStore()
	svc := &Service{
		Store:    st,
		Registry: &stubRegistry{company: retailCompany("")},
		Geo:      g,
		Vision:   &stubVision{obs: risk.NeutralObservation()},
		Ages:     &stubAges{},
	}

	res, err := svc.Assess(context.Background(), Request{CNPJ: testCNPJ})
	require.NoError(t, err)

	assert.Equal(t, imageSourceStreetView, res.ImageSource)
	assert.Equal(t, "Rua das Flores, 100", res.Location.FormattedAddress)
	assert.Equal(t, []byte("street-view-bytes"), st.images["12345678000195"])
}

func TestAssessDomainChecksNeverFatal(t *testing.T) {
	svc := &Service{
		Store:    newMemStore(),
		Registry: &stubRegistry{company: retailCompany("contato@empresa.com.br")},
		Vision:   &stubVision{obs: risk.NeutralObservation()},
		Ages: &stubAges{res: domaincheck.AgeResult{
			Domain: "gmail.com",
			Err:    "whois lookup failed",
		}},
	}

	res, err := svc.Assess(context.Background(), Request{
		CNPJ:            testCNPJ,
		ImageBase64:     fakeImage(),
		RegisteredEmail: "dono@gmail.com",
	})
	require.NoError(t, err)

	require.NotNil(t, res.DomainAge)
	assert.Equal(t, "whois lookup failed", res.DomainAge.Err)
	require.NotNil(t, res.CorporateEmail)
	assert.False(t, *res.CorporateEmail)

	// gmail.com vs empresa.com.br is not close; no typosquatting.
	require.NotNil(t, res.Typosquatting)
	assert.False(t, res.Typosquatting.IsSuspicious)
}

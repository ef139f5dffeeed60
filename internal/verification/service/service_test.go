package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"walletgate/internal/provider"
	"walletgate/internal/provider/mocks"
	"walletgate/internal/verification/models"
	profilestore "walletgate/internal/verification/store/profile"
	reviewstore "walletgate/internal/verification/store/review"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/audit/publisher"
	auditmemory "walletgate/pkg/platform/audit/store/memory"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	sandbox  *provider.Sandbox
	profiles *profilestore.InMemoryStore
	reviews  *reviewstore.InMemoryStore
	audit    *auditmemory.InMemoryStore
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.sandbox = provider.NewSandbox()
	s.profiles = profilestore.NewInMemory()
	s.reviews = reviewstore.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	svc, err := New(s.profiles, s.reviews, s.sandbox, WithAuditPublisher(publisher.NewPublisher(s.audit)))
	s.Require().NoError(err)
	s.service = svc
}

func validIndividual() map[string]string {
	return map[string]string{
		"first_name":          "Ada",
		"last_name":           "Lovelace",
		"email":               "ada@example.com",
		"birth_date":          "1985-12-10",
		"ssn":                 "123-45-6789",
		"address.line1":       "1 Analytical Way",
		"address.city":        "Austin",
		"address.state":       "TX",
		"address.postal_code": "78701",
		"address.country":     "US",
	}
}

func validBusiness() map[string]string {
	return map[string]string{
		"business.name":                            "Acme Ranch LLC",
		"business.entity_type":                     "llc",
		"business.ein":                             "12-3456789",
		"business.formation_date":                  "2015-04-01",
		"business.address.line1":                   "9 Pasture Rd",
		"business.address.city":                    "Amarillo",
		"business.address.state":                   "TX",
		"business.address.postal_code":             "79101",
		"business.address.country":                 "US",
		"control_person.first_name":                "Grace",
		"control_person.last_name":                 "Hopper",
		"control_person.birth_date":                "1970-01-01",
		"control_person.tax_identification_number": "987654321",
		"control_person.ownership_percentage":      "60",
		"control_person.title":                     "CEO",
		"control_person.address.line1":             "9 Pasture Rd",
		"control_person.address.city":              "Amarillo",
		"control_person.address.state":             "TX",
		"control_person.address.postal_code":       "79101",
		"control_person.address.country":           "US",
	}
}

func businessDocuments() []DocumentUpload {
	return []DocumentUpload{
		{Kind: models.DocBusinessFormation, Filename: "formation.pdf", Content: []byte("articles of organization")},
		{Kind: models.DocBusinessOwnership, Filename: "ownership.pdf", Content: []byte("cap table")},
	}
}

func (s *ServiceSuite) startBusiness() *models.Profile {
	p, err := s.service.StartProfile(s.ctx, id.AccountID(uuid.New()), models.SubjectBusiness)
	s.Require().NoError(err)
	_, err = s.service.AcceptTerms(s.ctx, p.ID, "agreement-1")
	s.Require().NoError(err)
	return p
}

// atDocumentsStep returns a business profile whose control person was accepted.
func (s *ServiceSuite) atDocumentsStep() *models.Profile {
	p := s.startBusiness()
	p, err := s.service.SubmitControlPerson(s.ctx, p.ID, validBusiness())
	s.Require().NoError(err)
	s.Require().Equal(models.StepBusinessDocuments, p.KYBStep)
	return p
}

func (s *ServiceSuite) approveDocuments(p *models.Profile) {
	for _, kind := range []models.DocumentKind{models.DocBusinessFormation, models.DocBusinessOwnership} {
		s.sandbox.SetDocumentStatus(p.Ref(), string(kind), provider.DocumentApproved, "")
	}
}

func (s *ServiceSuite) TestStartProfile() {
	accountID := id.AccountID(uuid.New())

	s.Run("second start returns the existing profile", func() {
		first, err := s.service.StartProfile(s.ctx, accountID, models.SubjectIndividual)
		s.Require().NoError(err)
		second, err := s.service.StartProfile(s.ctx, accountID, models.SubjectIndividual)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Len(s.audit.ListAction(s.ctx, audit.EventProfileStarted), 1)
	})

	s.Run("different subject type conflicts", func() {
		_, err := s.service.StartProfile(s.ctx, accountID, models.SubjectBusiness)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown subject type is invalid", func() {
		_, err := s.service.StartProfile(s.ctx, id.AccountID(uuid.New()), models.SubjectType("trust"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestSubmitIndividual_MissingSSN() {
	ctrl := gomock.NewController(s.T())
	gateway := mocks.NewMockGateway(ctrl)
	// No expectations: any provider call fails the test.
	svc, err := New(s.profiles, s.reviews, gateway)
	s.Require().NoError(err)

	p, err := svc.StartProfile(s.ctx, id.AccountID(uuid.New()), models.SubjectIndividual)
	s.Require().NoError(err)
	_, err = svc.AcceptTerms(s.ctx, p.ID, "")
	s.Require().NoError(err)

	data := validIndividual()
	delete(data, "ssn")
	_, err = svc.SubmitIndividual(s.ctx, p.ID, data)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	fields := dErrors.FieldsOf(err)
	s.Require().Len(fields, 1)
	s.Equal("ssn", fields[0].Field)
}

func (s *ServiceSuite) TestSubmitIndividual() {
	p, err := s.service.StartProfile(s.ctx, id.AccountID(uuid.New()), models.SubjectIndividual)
	s.Require().NoError(err)

	s.Run("terms must be accepted first", func() {
		_, err := s.service.SubmitIndividual(s.ctx, p.ID, validIndividual())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Zero(s.sandbox.Calls("CreateOrUpdateIndividual"))
	})

	s.Run("hidden fields are refused", func() {
		_, err := s.service.AcceptTerms(s.ctx, p.ID, "")
		s.Require().NoError(err)
		data := validIndividual()
		data["legacy_customer_id"] = "42"
		_, err = s.service.SubmitIndividual(s.ctx, p.ID, data)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("valid submission moves to under review", func() {
		out, err := s.service.SubmitIndividual(s.ctx, p.ID, validIndividual())
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, out.Status)
		s.NotNil(out.SubmittedAt)
	})

	s.Run("provider requested fields become required", func() {
		s.sandbox.RequestFields(p.Ref(), "occupation")
		_, err := s.service.RefreshVerificationStatus(s.ctx, p.ID)
		s.Require().NoError(err)
		_, err = s.service.SubmitIndividual(s.ctx, p.ID, validIndividual())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("occupation", dErrors.FieldsOf(err)[0].Field)
	})
}

func (s *ServiceSuite) TestKYBHappyPath() {
	p := s.atDocumentsStep()

	status, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments())
	s.Require().NoError(err)
	s.Equal(models.StepBusinessDocuments, status.KYBStep)
	s.Require().Len(status.Documents, 2)
	for _, d := range status.Documents {
		s.Equal(models.DocumentPending, d.Status)
		s.NotEmpty(d.ProviderDocumentID)
	}

	s.approveDocuments(p)
	status, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StepKYCVerification, status.KYBStep)
	s.Require().NotNil(status.Session)

	first, err := s.service.RequestControlPersonSession(s.ctx, p.ID)
	s.Require().NoError(err)
	second, err := s.service.RequestControlPersonSession(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(status.Session.URL, first.URL)
	s.Equal(first.URL, second.URL)
	s.Equal(1, s.sandbox.Calls("CreateControlPersonSession"))
	s.Len(s.audit.ListAction(s.ctx, audit.EventKYBStepAdvanced), 2)
}

func (s *ServiceSuite) TestRequestControlPersonSession_Concurrent() {
	p := s.atDocumentsStep()
	_, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments())
	s.Require().NoError(err)
	s.approveDocuments(p)

	s.sandbox.FailNext("CreateControlPersonSession", provider.NewProviderError(provider.ErrorProviderOutage, "CreateControlPersonSession", "down", nil))
	status, err := s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err, "a failed session does not fail the refresh")
	s.Equal(models.StepKYCVerification, status.KYBStep)
	s.Nil(status.Session)

	const callers = 16
	var (
		wg   sync.WaitGroup
		urls = make([]string, callers)
		errs = make([]error, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := s.service.RequestControlPersonSession(s.ctx, p.ID)
			errs[i] = err
			if sess != nil {
				urls[i] = sess.URL
			}
		}()
	}
	wg.Wait()

	for i := range callers {
		s.Require().NoError(errs[i])
		s.Equal(urls[0], urls[i])
	}
	s.Equal(2, s.sandbox.Calls("CreateControlPersonSession"), "one failed call plus one successful call")
}

func (s *ServiceSuite) TestKYBSubStepMonotonicity() {
	s.Run("documents before control person are refused", func() {
		p := s.startBusiness()
		_, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Zero(s.sandbox.Calls("UploadDocument"))
	})

	s.Run("control person is frozen once the step has passed", func() {
		p := s.atDocumentsStep()
		_, err := s.service.SubmitControlPerson(s.ctx, p.ID, validBusiness())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("refill reopens only the named fields without moving the step back", func() {
		p := s.atDocumentsStep()
		_, err := s.service.IssueRefill(s.ctx, p.ID, []string{"control_person.title"}, "title does not match filings", "reviewer-1")
		s.Require().NoError(err)
		status, err := s.service.RefreshVerificationStatus(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Require().NotNil(status.Refill)

		_, err = s.service.SubmitControlPerson(s.ctx, p.ID, map[string]string{
			"control_person.title":      "Managing Member",
			"control_person.first_name": "Eve",
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation), "unnamed fields stay frozen")

		_, err = s.service.SubmitControlPerson(s.ctx, p.ID, map[string]string{})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation), "named field is required")

		out, err := s.service.SubmitControlPerson(s.ctx, p.ID, map[string]string{"control_person.title": "Managing Member"})
		s.Require().NoError(err)
		s.Nil(out.Refill)
		s.Equal(models.StepBusinessDocuments, out.KYBStep)

		cp, err := s.profiles.FindControlPerson(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("Managing Member", cp.Fields["title"])
		s.Equal("Grace", cp.Fields["first_name"])

		status, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Nil(status.Refill, "an already merged refill is not reapplied")
	})
}

func (s *ServiceSuite) TestSubmitControlPerson_ProviderRejection() {
	p := s.startBusiness()
	data := validBusiness()
	data["control_person.tax_identification_number"] = "000000000"

	_, err := s.service.SubmitControlPerson(s.ctx, p.ID, data)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeProviderRejected))
	s.NotEmpty(dErrors.FieldsOf(err))

	stored, err := s.service.GetProfile(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StepControlPerson, stored.KYBStep)
	_, err = s.profiles.FindControlPerson(s.ctx, p.ID)
	s.Error(err, "nothing is persisted on rejection")
}

func (s *ServiceSuite) TestSubmitBusinessDocuments_AllOrNothing() {
	p := s.atDocumentsStep()

	s.Run("missing required kind is a validation error", func() {
		_, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments()[:1])
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(models.DocBusinessOwnership.Path(), dErrors.FieldsOf(err)[0].Field)
	})

	s.Run("one failed upload persists nothing", func() {
		s.sandbox.FailNext("UploadDocument", provider.NewProviderError(provider.ErrorProviderOutage, "UploadDocument", "down", nil))
		_, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeProviderUnavailable))

		docs, err := s.profiles.ListDocuments(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Empty(docs)
	})
}

func (s *ServiceSuite) TestDocumentResubmissionRoundTrip() {
	p := s.atDocumentsStep()
	_, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments())
	s.Require().NoError(err)

	s.Require().NoError(s.service.RecordDocumentDecision(s.ctx, models.DocumentDecision{
		ProfileID: p.ID, Kind: models.DocBusinessFormation, Status: models.DocumentRejected, Reason: "illegible scan",
	}))
	status, err := s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	formation := findDocument(status.Documents, models.DocBusinessFormation)
	s.Equal(models.DocumentRejected, formation.Status)
	s.Equal("illegible scan", formation.RejectionReason)

	status, err = s.service.SubmitBusinessDocuments(s.ctx, p.ID, []DocumentUpload{
		{Kind: models.DocBusinessFormation, Content: []byte("clear scan")},
	})
	s.Require().NoError(err)
	formation = findDocument(status.Documents, models.DocBusinessFormation)
	s.Equal(models.DocumentPending, formation.Status)
	s.Empty(formation.RejectionReason)

	status, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentPending, findDocument(status.Documents, models.DocBusinessFormation).Status,
		"a decision older than the upload does not apply")

	s.Require().NoError(s.service.RecordDocumentDecision(s.ctx, models.DocumentDecision{
		ProfileID: p.ID, Kind: models.DocBusinessFormation, Status: models.DocumentApproved,
	}))
	status, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentApproved, findDocument(status.Documents, models.DocBusinessFormation).Status)

	_, err = s.service.SubmitBusinessDocuments(s.ctx, p.ID, []DocumentUpload{
		{Kind: models.DocBusinessFormation, Content: []byte("another scan")},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "approved documents cannot be replaced")
}

func (s *ServiceSuite) TestRefreshIsIdempotent() {
	p := s.atDocumentsStep()
	_, err := s.service.SubmitBusinessDocuments(s.ctx, p.ID, businessDocuments())
	s.Require().NoError(err)

	s.sandbox.SetStatus(p.Ref(), provider.StatusAwaitingQuestionnaire)
	s.sandbox.SetDocumentStatus(p.Ref(), string(models.DocBusinessOwnership), provider.DocumentRejected, "outdated")
	s.sandbox.SetRefill(p.Ref(), "please confirm", "business.website")
	s.sandbox.RequestFields(p.Ref(), "business.website", "documents.proof_of_address")
	_, err = s.service.IssueRefill(s.ctx, p.ID, []string{"control_person.title"}, "", "reviewer-1")
	s.Require().NoError(err)

	ctx := s.ctx
	first, err := s.service.RefreshVerificationStatus(ctx, p.ID)
	s.Require().NoError(err)
	second, err := s.service.RefreshVerificationStatus(ctx, p.ID)
	s.Require().NoError(err)
	third, err := s.service.RefreshVerificationStatus(ctx, p.ID)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(second, third)
	s.Equal(models.StatusAwaitingQuestionnaire, first.Status)
	s.ElementsMatch([]string{"control_person.title", "business.website"}, first.Refill.Fields)
	s.Len(s.audit.ListAction(s.ctx, audit.EventVerificationStatusChanged), 1)
}

func (s *ServiceSuite) TestPauseAndResume() {
	p, err := s.service.StartProfile(s.ctx, id.AccountID(uuid.New()), models.SubjectIndividual)
	s.Require().NoError(err)
	_, err = s.service.AcceptTerms(s.ctx, p.ID, "")
	s.Require().NoError(err)
	_, err = s.service.SubmitIndividual(s.ctx, p.ID, validIndividual())
	s.Require().NoError(err)

	s.sandbox.SetStatus(p.Ref(), provider.StatusPaused)
	status, err := s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPaused, status.Status)

	_, err = s.service.SubmitIndividual(s.ctx, p.ID, validIndividual())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "paused profiles cannot submit")

	s.sandbox.SetStatus(p.Ref(), provider.StatusUnderReview)
	status, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, status.Status)
}

func (s *ServiceSuite) TestRequireApproved() {
	p, err := s.service.StartProfile(s.ctx, id.AccountID(uuid.New()), models.SubjectIndividual)
	s.Require().NoError(err)

	_, err = s.service.RequireApproved(s.ctx, p.AccountID)
	s.True(dErrors.HasCode(err, dErrors.CodeVerificationIncomplete))

	s.sandbox.SetStatus(p.Ref(), provider.StatusApproved)
	_, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	_, err = s.service.RequireApproved(s.ctx, p.AccountID)
	s.NoError(err)
}

func (s *ServiceSuite) TestShouldShowField() {
	p := s.startBusiness()
	show, err := s.service.ShouldShowField(s.ctx, p.ID, "documents.proof_of_address")
	s.Require().NoError(err)
	s.False(show)

	s.sandbox.RequestFields(p.Ref(), "documents.proof_of_address")
	_, err = s.service.RefreshVerificationStatus(s.ctx, p.ID)
	s.Require().NoError(err)
	show, err = s.service.ShouldShowField(s.ctx, p.ID, "documents.proof_of_address")
	s.Require().NoError(err)
	s.True(show)
}

func findDocument(docs []models.Document, kind models.DocumentKind) models.Document {
	for _, d := range docs {
		if d.Kind == kind {
			return d
		}
	}
	return models.Document{}
}

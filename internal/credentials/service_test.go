package credentials

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ipvcore/internal/cimit"
	cimitmocks "ipvcore/internal/cimit/mocks"
	"ipvcore/internal/credentials/mocks"
	"ipvcore/internal/credentials/models"
	credstore "ipvcore/internal/credentials/store"
	evidence "ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc"
	vcstore "ipvcore/internal/evidence/vc/store"
	"ipvcore/internal/evidence/vc/vctest"
	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/platform/kafka/consumer"
	session "ipvcore/internal/session/models"
	id "ipvcore/pkg/domain"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/publisher"
	auditmemory "ipvcore/pkg/platform/audit/store/memory"
	"ipvcore/pkg/requestcontext"
)

const (
	testUser    id.UserID = "urn:uuid:9d1f5f0a-user"
	testJourney           = "journey-1"
)

type stubFlags map[string]bool

func (f stubFlags) Enabled(_ context.Context, name string, def bool) bool {
	if v, ok := f[name]; ok {
		return v
	}
	return def
}

type stubIssuers map[id.CriID]vc.Issuer

func (s stubIssuers) Issuer(criID id.CriID) (vc.Issuer, error) {
	if i, ok := s[criID]; ok {
		return i, nil
	}
	return vc.Issuer{}, errors.New("unknown cri")
}

type recordingRunner struct {
	calls     int
	commitErr error
}

func (r *recordingRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return r.commitErr
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	ciStore *cimitmocks.MockCiStore
	vcs     *vcstore.InMemoryStore
	pending *credstore.InMemoryPendingStore
	audits  *auditmemory.InMemoryStore
	flags   stubFlags
	f2fKey  *ecdsa.PrivateKey
	service *Service
	sess    *session.IpvSession
	client  *session.ClientOAuthSession
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.reset()
}

// SetupSubTest gives every s.Run case fresh stores and mocks.
func (s *ServiceSuite) SetupSubTest() {
	s.reset()
}

func (s *ServiceSuite) reset() {
	s.now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctrl = gomock.NewController(s.T())
	s.ciStore = cimitmocks.NewMockCiStore(s.ctrl)
	s.vcs = vcstore.NewInMemoryStore()
	s.pending = credstore.NewInMemoryPendingStore()
	s.audits = auditmemory.NewInMemoryStore()
	s.flags = stubFlags{}
	s.f2fKey = vctest.NewKey(s.T())

	cfg, err := cimit.ParseConfig([]byte(`
threshold: 3
contraIndicators:
  V03:
    detectedScore: 4
    checkedScore: -4
    mitigations:
      - event: mitigation-enhanced-verification
  X01:
    detectedScore: 4
    checkedScore: 0
`))
	s.Require().NoError(err)

	s.service = New(s.vcs, s.pending, s.ciStore, cimit.New(cfg), publisher.NewPublisher(s.audits),
		WithFlags(s.flags),
		WithAsyncIntake(stubIssuers{"f2f": {CriID: "f2f", Issuer: "https://f2f.example", PublicKey: &s.f2fKey.PublicKey}},
			vc.NewValidator(vc.WithClock(func() time.Time { return time.Now() }))),
	)

	s.client = &session.ClientOAuthSession{ID: id.NewClientOAuthSessionID(), UserID: testUser, JourneyID: testJourney, Vtr: []string{"P2"}}
	s.sess = session.NewIpvSession(s.client.ID, s.now)
}

func (s *ServiceSuite) expectCIs(cis ...evidence.ContraIndicator) {
	s.ciStore.EXPECT().GetContraIndicators(gomock.Any(), testUser, testJourney, gomock.Any()).Return(cis, nil)
}

func person() evidence.CredentialSubject {
	return vctest.Person("Kenneth", "Decerqueira", "1965-07-08")
}

func (s *ServiceSuite) storeM1A() {
	ctx := context.Background()
	s.Require().NoError(s.vcs.Save(ctx, evidence.VerifiableCredential{UserID: testUser, CriID: "ukPassport", Issuer: "https://passport",
		Claims: evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{{Txn: "p1", StrengthScore: vctest.Score(4), ValidityScore: vctest.Score(2)}}}}))
	s.Require().NoError(s.vcs.Save(ctx, evidence.VerifiableCredential{UserID: testUser, CriID: "fraud", Issuer: "https://fraud",
		Claims: evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{{Txn: "f1", IdentityFraudScore: vctest.Score(1)}}}}))
	s.Require().NoError(s.vcs.Save(ctx, evidence.VerifiableCredential{UserID: testUser, CriID: "kbv", Issuer: "https://kbv",
		Claims: evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{{Txn: "k1", VerificationScore: vctest.Score(2)}}}}))
}

func (s *ServiceSuite) stored() []evidence.VerifiableCredential {
	out, err := s.vcs.ListByUser(context.Background(), testUser)
	s.Require().NoError(err)
	return out
}

func (s *ServiceSuite) TestCheckExistingIdentity() {
	s.Run("no stored credentials starts fresh without a reset", func() {
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventStartFresh, event)
		s.Empty(s.audits.Names())
	})

	s.Run("matching identity is reused", func() {
		s.storeM1A()
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventReuse, event)
		s.Equal(evidence.VotP2, s.sess.Vot)
		s.Len(s.sess.VcStatuses, 3)
		s.Equal([]audit.EventName{audit.EventGpg45ProfileMatched, audit.EventIdentityReuseComplete}, s.audits.Names())
	})

	s.Run("reprove identity resets", func() {
		s.storeM1A()
		s.client.ReproveIdentity = true

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventResetIdentity, event)
		s.Empty(s.stored())
	})

	s.Run("reset flag resets", func() {
		s.storeM1A()
		s.flags[FeatureResetIdentity] = true

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventResetIdentity, event)
	})

	s.Run("pending async issuer", func() {
		s.Require().NoError(s.pending.Upsert(context.Background(), models.PendingResponse{UserID: testUser, CriID: "f2f", Status: models.AsyncStatusPending}))

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventPending, event)
	})

	s.Run("errored async issuer", func() {
		s.Require().NoError(s.pending.Upsert(context.Background(), models.PendingResponse{UserID: testUser, CriID: "f2f", Status: models.AsyncStatusError}))

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventF2FFail, event)
	})

	s.Run("async record without a credential or a known outcome", func() {
		s.Require().NoError(s.pending.Upsert(context.Background(), models.PendingResponse{UserID: testUser, CriID: "f2f", Status: models.AsyncStatusComplete}))

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventF2FFail, event)
	})

	s.Run("completed F2F credential that does not match", func() {
		s.Require().NoError(s.pending.Upsert(context.Background(), models.PendingResponse{UserID: testUser, CriID: "f2f", Status: models.AsyncStatusComplete}))
		s.Require().NoError(s.vcs.Save(context.Background(), evidence.VerifiableCredential{UserID: testUser, CriID: "f2f", Issuer: "https://f2f.example",
			Claims: evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{{Txn: "f2f-1", StrengthScore: vctest.Score(4), ValidityScore: vctest.Score(2)}}}}))
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventF2FFail, event)
		s.Equal([]audit.EventName{audit.EventF2FProfileNotMetFail}, s.audits.Names())
		s.Len(s.stored(), 1)
	})

	s.Run("completed F2F credential that matches is reused", func() {
		s.storeM1A()
		s.Require().NoError(s.pending.Upsert(context.Background(), models.PendingResponse{UserID: testUser, CriID: "kbv", Status: models.AsyncStatusComplete}))
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventReuse, event)
	})

	s.Run("breaching CIs with a mitigation", func() {
		s.storeM1A()
		s.expectCIs(evidence.ContraIndicator{Code: "V03", IssuanceDate: s.now})

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal("mitigation-enhanced-verification", event)
		s.True(s.sess.CiFail)
	})

	s.Run("breaching CIs without a mitigation", func() {
		s.expectCIs(evidence.ContraIndicator{Code: "X01", IssuanceDate: s.now})

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventFailWithCI, event)
	})

	s.Run("uncorrelated credentials are reset", func() {
		s.storeM1A()
		s.Require().NoError(s.vcs.Save(context.Background(), evidence.VerifiableCredential{UserID: testUser, CriID: "address",
			Claims: evidence.VcClaim{CredentialSubject: vctest.Person("Someone", "Else", "1965-07-08")}}))
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventStartFresh, event)
		s.Equal([]audit.EventName{audit.EventIdentityReuseReset}, s.audits.Names())
		s.Empty(s.stored())
	})

	s.Run("expired credentials are evicted before matching", func() {
		s.storeM1A()
		s.Require().NoError(s.vcs.Save(context.Background(), evidence.VerifiableCredential{UserID: testUser, CriID: "kbv",
			ExpiresAt: s.now.Add(-time.Hour),
			Claims:    evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{{Txn: "k2", VerificationScore: vctest.Score(2)}}}}))
		s.Require().NoError(s.vcs.Save(context.Background(), evidence.VerifiableCredential{UserID: testUser, CriID: CriTicf}))
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventStartFresh, event, "without kbv the identity no longer meets M1A")
		s.Equal([]audit.EventName{audit.EventIdentityReuseReset}, s.audits.Names())
		s.Empty(s.stored())
	})

	s.Run("operational vot", func() {
		s.client.Vtr = []string{"PCL200"}
		s.Require().NoError(s.vcs.Save(context.Background(), evidence.VerifiableCredential{UserID: testUser, CriID: "hmrcMigration", Vot: evidence.VotPCL200,
			Claims: evidence.VcClaim{CredentialSubject: person()}}))
		s.expectCIs()

		event, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventReuse, event)
		s.Equal(evidence.VotPCL200, s.sess.Vot)
		s.Equal([]audit.EventName{audit.EventIdentityReuseComplete}, s.audits.Names())
	})

	s.Run("ci store failure", func() {
		s.ciStore.EXPECT().GetContraIndicators(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))

		_, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().Error(err)
	})

	s.Run("pending store failure", func() {
		pending := mocks.NewMockPendingStore(s.ctrl)
		pending.EXPECT().ListByUser(gomock.Any(), testUser).Return(nil, errors.New("db down"))
		s.service.pending = pending

		_, err := s.service.CheckExistingIdentity(s.ctx, s.sess, s.client)
		s.Require().ErrorContains(err, "db down")
	})
}

func (s *ServiceSuite) TestEvaluateGpg45Scores() {
	s.Run("met", func() {
		s.storeM1A()

		event, err := s.service.EvaluateGpg45Scores(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventMet, event)
		s.Equal(evidence.VotP2, s.sess.Vot)
		s.Equal([]audit.EventName{audit.EventGpg45ProfileMatched}, s.audits.Names())
	})

	s.Run("unmet", func() {
		s.Require().NoError(s.vcs.Save(context.Background(), evidence.VerifiableCredential{UserID: testUser, CriID: "fraud",
			Claims: evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{{Txn: "f1", IdentityFraudScore: vctest.Score(2)}}}}))

		event, err := s.service.EvaluateGpg45Scores(s.ctx, s.sess, s.client)
		s.Require().NoError(err)
		s.Equal(journey.EventUnmet, event)
		s.Empty(s.sess.Vot)
	})

	s.Run("credential store failure", func() {
		vcs := mocks.NewMockVcStore(s.ctrl)
		vcs.EXPECT().ListByUser(gomock.Any(), testUser).Return(nil, errors.New("db down"))
		s.service.vcs = vcs

		_, err := s.service.EvaluateGpg45Scores(s.ctx, s.sess, s.client)
		s.Require().Error(err)
	})
}

func (s *ServiceSuite) f2fCredential() string {
	return vctest.Sign(s.T(), s.f2fKey, vctest.Credential{
		Issuer:  "https://f2f.example",
		Subject: testUser.String(),
		Claim: evidence.VcClaim{CredentialSubject: person(), Evidence: []evidence.EvidenceItem{
			{Txn: "f2f-1", StrengthScore: vctest.Score(4), ValidityScore: vctest.Score(2), VerificationScore: vctest.Score(2)},
		}},
	})
}

func (s *ServiceSuite) pendingF2F(state string) {
	s.Require().NoError(s.pending.Upsert(context.Background(), models.PendingResponse{
		UserID: testUser, CriID: "f2f", Status: models.AsyncStatusPending, OAuthState: state, JourneyID: testJourney,
	}))
}

func (s *ServiceSuite) TestProcessBatch() {
	s.Run("credential is consumed", func() {
		s.pendingF2F("st-1")
		s.ciStore.EXPECT().SubmitVC(gomock.Any(), gomock.Any(), testJourney, "").Return(nil)
		s.ciStore.EXPECT().SubmitMitigatingVCs(gomock.Any(), testUser, gomock.Len(1), testJourney, "").Return(nil)

		failed := s.service.ProcessBatch(s.ctx, []models.AsyncMessage{
			{ID: "m1", UserID: testUser, CriID: "f2f", State: "st-1", Credentials: []string{s.f2fCredential()}},
		})
		s.Empty(failed)
		s.Len(s.stored(), 1)

		rec, err := s.pending.Get(context.Background(), testUser, "f2f")
		s.Require().NoError(err)
		s.Equal(models.AsyncStatusComplete, rec.Status)
		s.Equal([]audit.EventName{audit.EventF2FVcReceived, audit.EventF2FVcConsumed}, s.audits.Names())
	})

	s.Run("issuer error marks the record", func() {
		s.pendingF2F("st-1")

		failed := s.service.ProcessBatch(s.ctx, []models.AsyncMessage{
			{ID: "m1", UserID: testUser, CriID: "f2f", State: "st-1", Error: "access_denied"},
		})
		s.Empty(failed)
		rec, err := s.pending.Get(context.Background(), testUser, "f2f")
		s.Require().NoError(err)
		s.Equal(models.AsyncStatusError, rec.Status)
		s.Equal("access_denied", rec.ErrorCode)
		s.Equal([]audit.EventName{audit.EventF2FVcError}, s.audits.Names())
	})

	s.Run("failures are reported per message", func() {
		s.pendingF2F("st-1")
		s.ciStore.EXPECT().SubmitVC(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.ciStore.EXPECT().SubmitMitigatingVCs(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		failed := s.service.ProcessBatch(s.ctx, []models.AsyncMessage{
			{ID: "unexpected", UserID: "urn:uuid:nobody", CriID: "f2f", State: "x", Credentials: []string{"a.b.c"}},
			{ID: "wrong-state", UserID: testUser, CriID: "f2f", State: "other", Credentials: []string{"a.b.c"}},
			{ID: "good", UserID: testUser, CriID: "f2f", State: "st-1", Credentials: []string{s.f2fCredential()}},
		})
		s.Equal([]string{"unexpected", "wrong-state"}, failed)
		s.Len(s.stored(), 1)
	})

	s.Run("settling writes run as one unit of work", func() {
		s.pendingF2F("st-1")
		s.ciStore.EXPECT().SubmitVC(gomock.Any(), gomock.Any(), testJourney, "").Return(nil)
		s.ciStore.EXPECT().SubmitMitigatingVCs(gomock.Any(), testUser, gomock.Len(1), testJourney, "").Return(nil)
		runner := &recordingRunner{commitErr: errors.New("commit failed")}
		WithTransactor(runner)(s.service)

		failed := s.service.ProcessBatch(s.ctx, []models.AsyncMessage{
			{ID: "m1", UserID: testUser, CriID: "f2f", State: "st-1", Credentials: []string{s.f2fCredential()}},
		})
		s.Equal([]string{"m1"}, failed)
		s.Equal(1, runner.calls)
	})

	s.Run("invalid signature fails the message", func() {
		s.pendingF2F("st-1")
		forged := vctest.Sign(s.T(), vctest.NewKey(s.T()), vctest.Credential{Issuer: "https://f2f.example", Subject: testUser.String()})

		failed := s.service.ProcessBatch(s.ctx, []models.AsyncMessage{
			{ID: "m1", UserID: testUser, CriID: "f2f", State: "st-1", Credentials: []string{forged}},
		})
		s.Equal([]string{"m1"}, failed)
		rec, err := s.pending.Get(context.Background(), testUser, "f2f")
		s.Require().NoError(err)
		s.Equal(models.AsyncStatusPending, rec.Status)
	})

	s.Run("batch handler decodes queue records", func() {
		handler := NewBatchHandler(s.service, nil)

		failed := handler.HandleBatch(s.ctx, []*consumer.Message{
			{Topic: "cri.async", Partition: 0, Offset: 7, Value: []byte("not json")},
			{Topic: "cri.async", Partition: 0, Offset: 8, Value: []byte(`{"sub":"urn:uuid:nobody","criId":"f2f","state":"s"}`)},
		})
		s.Equal([]string{"cri.async/0/7", "cri.async/0/8"}, failed)
	})
}

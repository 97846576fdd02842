package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/leaddesk/models"
	"github.com/upb/leaddesk/repositories"
	"github.com/upb/leaddesk/services"
	"github.com/upb/leaddesk/services/notification"
	"github.com/upb/leaddesk/services/verification"
	"go.uber.org/zap"
)

// Mock implementations

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) (*verification.Outcome, error) {
	args := m.Called(ctx, token, remoteIP)
	if o := args.Get(0); o != nil {
		return o.(*verification.Outcome), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendLeadCreationEmail(ctx context.Context, recipients []string, lead *models.Lead) (*notification.Receipt, error) {
	args := m.Called(ctx, recipients, lead)
	if r := args.Get(0); r != nil {
		return r.(*notification.Receipt), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) GetByIDWithUsers(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// fakeTx records how the transaction ended
type fakeTx struct {
	ctx        context.Context
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error          { t.rolledBack = true; return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }

type fakeTxManager struct {
	tx        *fakeTx
	beginErr  error
	commitErr error
}

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.tx = &fakeTx{ctx: ctx, commitErr: m.commitErr}
	return m.tx, nil
}

// Test fixtures

type fixture struct {
	service  *Service
	verifier *MockVerifier
	sender   *MockSender
	clients  *MockClientRepository
	leads    *MockLeadRepository
	txMgr    *fakeTxManager
	client   *models.Client
}

func newFixture() *fixture {
	f := &fixture{
		verifier: new(MockVerifier),
		sender:   new(MockSender),
		clients:  new(MockClientRepository),
		leads:    new(MockLeadRepository),
		txMgr:    &fakeTxManager{},
	}
	f.service = NewService(
		&repositories.Repositories{Clients: f.clients, Leads: f.leads},
		f.txMgr,
		f.verifier,
		f.sender,
		zap.NewNop(),
	)

	f.client = models.NewClient("Acme")
	f.client.Users = []*models.User{
		models.NewUser("owner@acme.test", "Owner", models.RoleClientUser, &f.client.ID),
		models.NewUser("", "No Email", models.RoleClientUser, &f.client.ID),
		models.NewUser("sales@acme.test", "Sales", models.RoleClientUser, &f.client.ID),
	}
	return f
}

func (f *fixture) validFields() map[string]string {
	return map[string]string{
		FieldName:     "Jane Doe",
		FieldEmail:    "jane@example.com",
		FieldClientID: f.client.ID.String(),
		FieldToken:    "token-abc",
	}
}

func (f *fixture) submission(t *testing.T, fields map[string]string) *Submission {
	t.Helper()
	sub, err := NewSubmission(fields, "203.0.113.7")
	require.NoError(t, err)
	return sub
}

func passingOutcome() *verification.Outcome {
	return &verification.Outcome{Success: true, Raw: verification.Response{Success: true}}
}

func TestNewSubmission(t *testing.T) {
	t.Run("absent meta", func(t *testing.T) {
		sub, err := NewSubmission(map[string]string{"name": "x"}, "")
		require.NoError(t, err)
		assert.Nil(t, sub.Meta)
		assert.False(t, sub.HasMeta)
	})

	t.Run("null meta is present", func(t *testing.T) {
		sub, err := NewSubmission(map[string]string{"meta": "null"}, "")
		require.NoError(t, err)
		assert.Nil(t, sub.Meta)
		assert.True(t, sub.HasMeta)
	})

	t.Run("object meta", func(t *testing.T) {
		sub, err := NewSubmission(map[string]string{"meta": `{"page":"/pricing"}`}, "")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"page": "/pricing"}, sub.Meta)
	})

	t.Run("array meta decodes", func(t *testing.T) {
		sub, err := NewSubmission(map[string]string{"meta": `[1,2]`}, "")
		require.NoError(t, err)
		assert.IsType(t, []interface{}{}, sub.Meta)
	})

	t.Run("invalid meta", func(t *testing.T) {
		_, err := NewSubmission(map[string]string{"meta": `{not json`}, "")
		require.Error(t, err)
		assert.True(t, services.IsMalformedInputError(err))
		assert.Equal(t, "Invalid meta", services.GetErrorMessage(err))
		assert.Contains(t, services.GetErrorDetails(err), FieldMeta)
	})

	t.Run("empty meta", func(t *testing.T) {
		_, err := NewSubmission(map[string]string{"meta": ""}, "")
		assert.True(t, services.IsMalformedInputError(err))
	})

	t.Run("nil fields", func(t *testing.T) {
		sub, err := NewSubmission(nil, "")
		require.NoError(t, err)
		assert.NotNil(t, sub.Fields)
	})
}

func TestIsRecognizedField(t *testing.T) {
	for _, k := range []string{"name", "email", "clientId", "message", "meta", "cf-turnstile-response"} {
		assert.True(t, IsRecognizedField(k), k)
	}
	assert.False(t, IsRecognizedField("phone"))
	assert.False(t, IsRecognizedField("Name"))
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	fields := f.validFields()
	fields[FieldMessage] = "Hello"
	fields[FieldMeta] = `{"page":"/pricing"}`
	fields["phone"] = "555-0100"
	fields["company"] = "Initech"

	f.verifier.On("Verify", mock.Anything, "token-abc", "203.0.113.7").Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
	f.leads.On("Create", mock.Anything, mock.AnythingOfType("*models.Lead")).Return(nil)
	f.sender.On("SendLeadCreationEmail", mock.Anything, []string{"owner@acme.test", "sales@acme.test"}, mock.AnythingOfType("*models.Lead")).
		Return(&notification.Receipt{MessageID: "msg-1"}, nil)

	result, err := f.service.Submit(ctx, f.submission(t, fields))

	require.NoError(t, err)
	assert.True(t, result.EmailAccepted)

	lead := result.Lead
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, "jane@example.com", lead.Email)
	assert.Equal(t, f.client.ID, lead.ClientID)
	require.NotNil(t, lead.Message)
	assert.Equal(t, "Hello", *lead.Message)
	assert.Equal(t, models.JSONMap{"page": "/pricing"}, lead.Meta)
	assert.Equal(t, models.JSONMap{"phone": "555-0100", "company": "Initech"}, lead.AdditionalFields)

	assert.True(t, f.txMgr.tx.committed)
	assert.False(t, f.txMgr.tx.rolledBack)
	f.verifier.AssertExpectations(t)
	f.clients.AssertExpectations(t)
	f.leads.AssertExpectations(t)
	f.sender.AssertExpectations(t)
}

func TestSubmit_Defaults(t *testing.T) {
	f := newFixture()

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
	f.leads.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sender.On("SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything).
		Return(&notification.Receipt{MessageID: "msg-1"}, nil)

	result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

	require.NoError(t, err)
	assert.Nil(t, result.Lead.Message, "absent message stays absent")
	assert.Equal(t, models.JSONMap{}, result.Lead.Meta)
	assert.Equal(t, models.JSONMap{}, result.Lead.AdditionalFields)
}

func TestSubmit_EmptyMessageIsKept(t *testing.T) {
	f := newFixture()
	fields := f.validFields()
	fields[FieldMessage] = ""

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
	f.leads.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sender.On("SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything).
		Return(&notification.Receipt{MessageID: "msg-1"}, nil)

	result, err := f.service.Submit(context.Background(), f.submission(t, fields))

	require.NoError(t, err)
	require.NotNil(t, result.Lead.Message)
	assert.Equal(t, "", *result.Lead.Message)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[string]string)
		field    string
		expected string
	}{
		{"missing name", func(m map[string]string) { delete(m, FieldName) }, FieldName, "Name is required"},
		{"empty name", func(m map[string]string) { m[FieldName] = "" }, FieldName, "Name is required"},
		{"invalid email", func(m map[string]string) { m[FieldEmail] = "not-an-email" }, FieldEmail, "Email is required"},
		{"missing client", func(m map[string]string) { delete(m, FieldClientID) }, FieldClientID, "Client ID is required"},
		{"malformed client", func(m map[string]string) { m[FieldClientID] = "abc" }, FieldClientID, "Client ID is required"},
		{"missing token", func(m map[string]string) { delete(m, FieldToken) }, FieldToken, "Verification token is required"},
		{"meta not an object", func(m map[string]string) { m[FieldMeta] = `"text"` }, FieldMeta, "Meta must be an object"},
		{"meta null", func(m map[string]string) { m[FieldMeta] = "null" }, FieldMeta, "Meta must be an object"},
		{"meta array", func(m map[string]string) { m[FieldMeta] = `[1,2]` }, FieldMeta, "Meta must be an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			fields := f.validFields()
			tt.mutate(fields)

			result, err := f.service.Submit(context.Background(), f.submission(t, fields))

			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
			assert.Equal(t, tt.expected, services.GetErrorDetails(err)[tt.field])

			f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
			f.leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_ValidationReportsEveryField(t *testing.T) {
	f := newFixture()

	_, err := f.service.Submit(context.Background(), f.submission(t, map[string]string{}))

	require.Error(t, err)
	details := services.GetErrorDetails(err)
	assert.Len(t, details, 4)
	assert.Contains(t, details, FieldName)
	assert.Contains(t, details, FieldEmail)
	assert.Contains(t, details, FieldClientID)
	assert.Contains(t, details, FieldToken)
}

func TestSubmit_VerificationFailure(t *testing.T) {
	tests := []struct {
		name    string
		outcome *verification.Outcome
		err     error
	}{
		{"rejected", &verification.Outcome{Raw: verification.Response{ErrorCodes: []string{"invalid-input-response"}}}, nil},
		{"transport error", nil, verification.ErrRequestFailed},
		{"bad status", nil, verification.ErrUnexpectedStatus},
		{"undecodable", nil, verification.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.verifier.On("Verify", mock.Anything, "token-abc", "203.0.113.7").Return(tt.outcome, tt.err)

			result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, services.IsVerificationError(err))
			assert.Equal(t, VerificationFailedMessage, services.GetErrorMessage(err))
			f.clients.AssertNotCalled(t, "GetByIDWithUsers", mock.Anything, mock.Anything)
			f.leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_MissingSecret(t *testing.T) {
	f := newFixture()
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil, verification.ErrMissingSecret)

	_, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

	require.Error(t, err)
	assert.True(t, services.IsConfigurationError(err))
	f.leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_ClientNotFound(t *testing.T) {
	f := newFixture()
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).
		Return(nil, errors.Join(errors.New("client lookup"), repositories.ErrNotFound))

	result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, services.IsNotFoundError(err))
	assert.Equal(t, "Client not found", services.GetErrorMessage(err))
	assert.True(t, f.txMgr.tx.rolledBack)
	f.leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_ClientLookupError(t *testing.T) {
	f := newFixture()
	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(nil, errors.New("connection reset"))

	_, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

	require.Error(t, err)
	assert.True(t, services.IsInternalError(err))
	assert.Equal(t, "Failed to load client", services.GetErrorMessage(err))
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	t.Run("insert fails", func(t *testing.T) {
		f := newFixture()
		f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
		f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
		f.leads.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

		require.Error(t, err)
		assert.True(t, services.IsInternalError(err))
		assert.Equal(t, "Failed to create lead", services.GetErrorMessage(err))
		assert.True(t, f.txMgr.tx.rolledBack)
		f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("client removed before insert", func(t *testing.T) {
		f := newFixture()
		f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
		f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
		f.leads.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrInvalidReference)

		_, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestSubmit_TransactionFailure(t *testing.T) {
	t.Run("begin fails", func(t *testing.T) {
		f := newFixture()
		f.txMgr.beginErr = errors.New("connection refused")
		f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)

		result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

		assert.Nil(t, result)
		require.Error(t, err)
		assert.True(t, services.IsInternalError(err))
		assert.Equal(t, "Failed to create lead", services.GetErrorMessage(err))
		f.clients.AssertNotCalled(t, "GetByIDWithUsers", mock.Anything, mock.Anything)
		f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("commit fails", func(t *testing.T) {
		f := newFixture()
		f.txMgr.commitErr = errors.New("could not serialize access")
		f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
		f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
		f.leads.On("Create", mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

		assert.Nil(t, result)
		require.Error(t, err)
		assert.True(t, services.IsInternalError(err))
		assert.Equal(t, "Failed to create lead", services.GetErrorMessage(err))
		assert.False(t, f.txMgr.tx.committed)
		f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSubmit_NotificationIsBestEffort(t *testing.T) {
	tests := []struct {
		name    string
		receipt *notification.Receipt
		err     error
	}{
		{"send error", nil, errors.New("throttled")},
		{"no message id", &notification.Receipt{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
			f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
			f.leads.On("Create", mock.Anything, mock.Anything).Return(nil)
			f.sender.On("SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything).Return(tt.receipt, tt.err)

			result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

			require.NoError(t, err)
			assert.False(t, result.EmailAccepted)
			assert.NotNil(t, result.Lead)
			assert.True(t, f.txMgr.tx.committed)
		})
	}
}

func TestSubmit_NoRecipientsSkipsSend(t *testing.T) {
	f := newFixture()
	f.client.Users = nil

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
	f.leads.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.Submit(context.Background(), f.submission(t, f.validFields()))

	require.NoError(t, err)
	assert.False(t, result.EmailAccepted)
	f.sender.AssertNotCalled(t, "SendLeadCreationEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_NotificationSurvivesCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	f.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(passingOutcome(), nil)
	f.clients.On("GetByIDWithUsers", mock.Anything, f.client.ID).Return(f.client, nil)
	f.leads.On("Create", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(nil)
	f.sender.On("SendLeadCreationEmail", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything, mock.Anything).
		Return(&notification.Receipt{MessageID: "msg-1"}, nil)

	result, err := f.service.Submit(ctx, f.submission(t, f.validFields()))

	require.NoError(t, err)
	assert.True(t, result.EmailAccepted)
}

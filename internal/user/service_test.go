package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/baharserene/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = uuid.Must(uuid.NewV4())
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd user.ProfileUpdate) (*user.User, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestUserService_Signup_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := user.NewServiceWithCost(mockRepo, bcrypt.MinCost)

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Email == "rana@example.com" && u.Role == user.RoleUser && u.Phone != nil && *u.Phone == "0300123456"
	})).Return(nil).Once()

	created, err := svc.Signup(context.Background(), user.SignupInput{
		FirstName: " Rana ",
		LastName:  "Khan",
		Email:     "  Rana@Example.COM ",
		Password:  "secret1",
		Phone:     "0300123456",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Rana", created.FirstName)

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))
	assert.NotEqual(t, "secret1", created.PasswordHash, "password should be hashed, not raw")
	mockRepo.AssertExpectations(t)
}

func TestUserService_Signup_Errors(t *testing.T) {
	t.Run("email_exists", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := user.NewServiceWithCost(mockRepo, bcrypt.MinCost)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).Return(user.ErrEmailExists).Once()

		created, err := svc.Signup(context.Background(), user.SignupInput{Email: "dup@example.com", Password: "secret1"})
		require.ErrorIs(t, err, user.ErrEmailExists)
		require.Nil(t, created)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty_password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := user.NewServiceWithCost(mockRepo, bcrypt.MinCost)

		_, err := svc.Signup(context.Background(), user.SignupInput{Email: "a@example.com"})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUserService_Login(t *testing.T) {
	stored := &user.User{ID: uuid.Must(uuid.NewV4()), Email: "rana@example.com", PasswordHash: hashed(t, "secret1"), Role: user.RoleAdmin}
	dbErr := errors.New("db down")

	tests := []struct {
		name     string
		password string
		found    *user.User
		findErr  error
		wantErr  error
	}{
		{name: "success", password: "secret1", found: stored},
		{name: "wrong_password", password: "nope", found: stored, wantErr: user.ErrInvalidCredentials},
		{name: "unknown_email", password: "secret1", findErr: user.ErrNotFound, wantErr: user.ErrInvalidCredentials},
		{name: "storage_failure", password: "secret1", findErr: dbErr, wantErr: dbErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			svc := user.NewServiceWithCost(mockRepo, bcrypt.MinCost)
			if tt.found != nil {
				mockRepo.On("GetByEmail", mock.Anything, "rana@example.com").Return(tt.found, nil).Once()
			} else {
				mockRepo.On("GetByEmail", mock.Anything, "rana@example.com").Return(nil, tt.findErr).Once()
			}

			got, err := svc.Login(context.Background(), "RANA@example.com", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, stored.ID, got.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Profile(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	name := "Sara"
	upd := user.ProfileUpdate{FirstName: &name}

	mockRepo := new(MockUserRepository)
	svc := user.NewService(mockRepo)
	mockRepo.On("GetByID", mock.Anything, id).Return(nil, user.ErrNotFound).Once()
	mockRepo.On("UpdateProfile", mock.Anything, id, upd).Return(&user.User{ID: id, FirstName: name}, nil).Once()

	_, err := svc.GetProfile(context.Background(), id)
	assert.ErrorIs(t, err, user.ErrNotFound)

	updated, err := svc.UpdateProfile(context.Background(), id, upd)
	require.NoError(t, err)
	assert.Equal(t, "Sara", updated.FirstName)
	mockRepo.AssertExpectations(t)
}

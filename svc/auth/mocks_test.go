package auth_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/authkit/pkg/gotrue"
)

// MockProvider is a mock implementation of auth.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetUser(ctx context.Context, accessToken string) (*gotrue.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gotrue.User), args.Error(1)
}

func (m *MockProvider) RefreshSession(ctx context.Context, refreshToken string) (*gotrue.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gotrue.Session), args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, p gotrue.SignUpParams) (*gotrue.SignUpResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gotrue.SignUpResult), args.Error(1)
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*gotrue.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gotrue.Session), args.Error(1)
}

func (m *MockProvider) SignInWithOTP(ctx context.Context, p gotrue.OTPParams) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProvider) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	args := m.Called(provider, redirectTo, codeChallenge)
	return args.String(0)
}

func (m *MockProvider) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*gotrue.Session, error) {
	args := m.Called(ctx, authCode, codeVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gotrue.Session), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockProvider) Recover(ctx context.Context, email, redirectTo, codeChallenge string) error {
	args := m.Called(ctx, email, redirectTo, codeChallenge)
	return args.Error(0)
}

func (m *MockProvider) UpdateUser(ctx context.Context, accessToken string, attrs gotrue.UserAttributes) (*gotrue.User, error) {
	args := m.Called(ctx, accessToken, attrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gotrue.User), args.Error(1)
}

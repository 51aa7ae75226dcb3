// Package mocks provides gomock implementations of the console's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockIdentityAPI(ctrl)
//	api.EXPECT().Login(gomock.Any(), "admin", "admin123").Return(reply, nil)
package mocks

// Generate mock for IdentityAPI interface from internal/ports package.
// This creates MockIdentityAPI with methods for all IdentityAPI interface methods:
// Login, Logout, Validate, ResetPassword, Me
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_api_mock.go github.com/target/forest-console/internal/ports IdentityAPI

// Generate mock for SessionExpiredHandler interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_expired_handler_mock.go github.com/target/forest-console/internal/ports SessionExpiredHandler

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	auth "github.com/holomush/authd/internal/auth"
	mock "github.com/stretchr/testify/mock"
)

// MockSessionCodec is a mock type for the SessionCodec type
type MockSessionCodec struct {
	mock.Mock
}

// Issue provides a mock function with given fields: payload
func (_m *MockSessionCodec) Issue(payload auth.SessionPayload) (string, error) {
	ret := _m.Called(payload)

	if len(ret) == 0 {
		panic("no return value specified for Issue")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(auth.SessionPayload) (string, error)); ok {
		return rf(payload)
	}
	if rf, ok := ret.Get(0).(func(auth.SessionPayload) string); ok {
		r0 = rf(payload)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(auth.SessionPayload) error); ok {
		r1 = rf(payload)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Verify provides a mock function with given fields: token
func (_m *MockSessionCodec) Verify(token string) (auth.SessionPayload, error) {
	ret := _m.Called(token)

	if len(ret) == 0 {
		panic("no return value specified for Verify")
	}

	var r0 auth.SessionPayload
	var r1 error
	if rf, ok := ret.Get(0).(func(string) (auth.SessionPayload, error)); ok {
		return rf(token)
	}
	if rf, ok := ret.Get(0).(func(string) auth.SessionPayload); ok {
		r0 = rf(token)
	} else {
		r0 = ret.Get(0).(auth.SessionPayload)
	}

	if rf, ok := ret.Get(1).(func(string) error); ok {
		r1 = rf(token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSessionCodec creates a new instance of MockSessionCodec. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSessionCodec(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionCodec {
	mock := &MockSessionCodec{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

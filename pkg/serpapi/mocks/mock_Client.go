// Package mocks provides test doubles for the serpapi client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	serpapi "github.com/sells-group/prospect-cli/pkg/serpapi"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// MapsSearch provides a mock function with given fields: ctx, req
func (_m *MockClient) MapsSearch(ctx context.Context, req serpapi.MapsRequest) (*serpapi.MapsResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for MapsSearch")
	}

	var r0 *serpapi.MapsResponse
	if rf, ok := ret.Get(0).(func(context.Context, serpapi.MapsRequest) (*serpapi.MapsResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*serpapi.MapsResponse)
	}
	return r0, ret.Error(1)
}

// WebSearch provides a mock function with given fields: ctx, query, num
func (_m *MockClient) WebSearch(ctx context.Context, query string, num int) (*serpapi.WebResponse, error) {
	ret := _m.Called(ctx, query, num)

	if len(ret) == 0 {
		panic("no return value specified for WebSearch")
	}

	var r0 *serpapi.WebResponse
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*serpapi.WebResponse, error)); ok {
		return rf(ctx, query, num)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*serpapi.WebResponse)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

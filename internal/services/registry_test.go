package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock service for testing
type MockService struct {
	name             string
	initializeCalled bool
	initializeError  error
	initOrder        *[]string
}

func NewMockService(name string) *MockService {
	return &MockService{
		name: name,
	}
}

func (m *MockService) Name() string {
	return m.name
}

func (m *MockService) Initialize() error {
	m.initializeCalled = true
	if m.initOrder != nil {
		*m.initOrder = append(*m.initOrder, m.name)
	}
	return m.initializeError
}

func TestRegistry_NewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.services)
	assert.Empty(t, registry.services)
}

func TestRegistry_RegisterService(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.RegisterService(NewMockService("alpha")))
	err := registry.RegisterService(NewMockService("alpha"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	service, err := registry.GetService("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", service.Name())

	_, err = registry.GetService("missing")
	assert.EqualError(t, err, "service missing not found")
}

func TestRegistry_InitializeAll_RegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	var order []string

	for _, name := range []string{"configuration", "provider_catalog", "keyword"} {
		svc := NewMockService(name)
		svc.initOrder = &order
		require.NoError(t, registry.RegisterService(svc))
	}

	require.NoError(t, registry.InitializeAll())
	assert.Equal(t, []string{"configuration", "provider_catalog", "keyword"}, order)
	assert.Equal(t, []string{"configuration", "keyword", "provider_catalog"}, registry.ServiceNames())
}

func TestRegistry_InitializeAll_Error(t *testing.T) {
	registry := NewRegistry()
	failing := NewMockService("broken")
	failing.initializeError = errors.New("boom")
	require.NoError(t, registry.RegisterService(failing))

	err := registry.InitializeAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize service broken")
	assert.ErrorIs(t, err, failing.initializeError)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = registry.RegisterService(NewMockService(fmt.Sprintf("svc-%d", i)))
			_, _ = registry.GetService("svc-0")
		}(i)
	}
	wg.Wait()

	assert.Len(t, registry.ServiceNames(), 20)
}

func TestGetTypedService(t *testing.T) {
	original := GetGlobalRegistry()
	t.Cleanup(func() { SetGlobalRegistry(original) })

	registry := NewRegistry()
	SetGlobalRegistry(registry)
	require.NoError(t, registry.RegisterService(NewMockService("mock")))

	svc, err := GetTypedService[*MockService]("mock")
	require.NoError(t, err)
	assert.Equal(t, "mock", svc.Name())

	_, err = GetTypedService[*EngineCatalogService]("mock")
	assert.Error(t, err)

	_, err = GetTypedService[*MockService]("absent")
	assert.Error(t, err)
}

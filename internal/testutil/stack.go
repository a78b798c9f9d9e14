package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/events"
	"skilllink-client/internal/core/store"
	"skilllink-client/internal/service"
)

// Stack 指向 FakeAPI 的完整客户端依赖
type Stack struct {
	API      *FakeAPI
	Store    *store.Memory
	Bus      *events.Bus
	Client   *apiclient.Client
	Services *service.Services
	Log      *zap.Logger
}

func NewStack(t testing.TB) *Stack {
	t.Helper()
	api := NewFakeAPI(t)
	s := &Stack{API: api, Store: store.NewMemory(), Bus: events.NewBus(), Log: zaptest.NewLogger(t)}
	s.Client = apiclient.New(
		config.API{BaseURL: api.BaseURL(), TimeoutSec: 5},
		s.Store, s.Bus,
		apiclient.WithLogger(s.Log),
		apiclient.WithRegisterer(prometheus.NewRegistry()),
	)
	s.Services = service.New(s.Client)
	return s
}

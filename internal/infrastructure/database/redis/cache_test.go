package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/compound-analysis/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	log := logging.NewNopLogger()
	client := NewClientFromUniversal(db, "test:", log)
	s.cache = NewRedisCache(client, log, WithNamespace("chembl"), WithDefaultTTL(time.Hour), WithNullCacheTTL(time.Minute))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type molecule struct {
	ID string  `json:"id"`
	MW float64 `json:"mw"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	want := molecule{ID: "CHEMBL25", MW: 180.16}
	raw, _ := json.Marshal(want)
	s.mock.ExpectGet("test:chembl:mol:CHEMBL25").SetVal(string(raw))

	var got molecule
	s.NoError(s.cache.Get(context.Background(), "mol:CHEMBL25", &got))
	s.Equal(want, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:chembl:mol:x").RedisNil()

	var got molecule
	err := s.cache.Get(context.Background(), "mol:x", &got)
	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_NullMarkerIsMiss() {
	s.mock.ExpectGet("test:chembl:mol:x").SetVal(nullMarker)

	var got molecule
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "mol:x", &got))
}

func (s *CacheTestSuite) TestGet_RedisError() {
	s.mock.ExpectGet("test:chembl:mol:x").SetErr(errors.New("connection reset"))

	var got molecule
	err := s.cache.Get(context.Background(), "mol:x", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSet_UsesDefaultTTL() {
	v := molecule{ID: "CHEMBL25"}
	raw, _ := json.Marshal(v)
	s.mock.ExpectSet("test:chembl:mol:CHEMBL25", raw, time.Hour).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "mol:CHEMBL25", v, 0))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:chembl:a", "test:chembl:b").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestGetOrSet_LoadsAndPopulates() {
	v := molecule{ID: "CHEMBL25", MW: 180.16}
	raw, _ := json.Marshal(v)
	s.mock.ExpectGet("test:chembl:mol:CHEMBL25").RedisNil()
	s.mock.ExpectSet("test:chembl:mol:CHEMBL25", raw, 2*time.Hour).SetVal("OK")

	var calls int32
	var got molecule
	err := s.cache.GetOrSet(context.Background(), "mol:CHEMBL25", &got, 2*time.Hour, func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return v, nil
	})
	s.NoError(err)
	s.Equal(v, got)
	s.Equal(int32(1), calls)
}

func (s *CacheTestSuite) TestGetOrSet_CachesAbsence() {
	s.mock.ExpectGet("test:chembl:mol:none").RedisNil()
	s.mock.ExpectSet("test:chembl:mol:none", nullMarker, time.Minute).SetVal("OK")

	var got molecule
	err := s.cache.GetOrSet(context.Background(), "mol:none", &got, 0, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	s.mock.ExpectGet("test:chembl:mol:x").RedisNil()
	boom := errors.New("upstream down")

	var got molecule
	err := s.cache.GetOrSet(context.Background(), "mol:x", &got, 0, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

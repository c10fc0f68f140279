//go:build integration

package listingcache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"domainpark/internal/listingcache"
	"domainpark/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *listingcache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = listingcache.NewRedis(s.redis.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestEmptyKeyIsEmptyCache() {
	all, err := s.cache.All(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *RedisCacheSuite) TestAddPersistsUnderSharedKey() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Add(ctx, listingcache.Parked("test.shop")))

	raw, err := s.redis.Client.Get(ctx, listingcache.DefaultKey).Result()
	s.Require().NoError(err)
	s.JSONEq(`[{"domain":"test.shop","price":0,"currency":1,"forsale":0,"fixedprice":0,"sedo_listed":true}]`, raw)
}

func (s *RedisCacheSuite) TestMalformedValueTreatedAsEmpty() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, listingcache.DefaultKey, "{not json", 0).Err())

	all, err := s.cache.All(ctx)
	s.Require().NoError(err)
	s.Empty(all)

	s.Require().NoError(s.cache.Add(ctx, listingcache.Parked("test.shop")))
	all, err = s.cache.All(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *RedisCacheSuite) TestRemove() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Add(ctx, listingcache.Parked("a.shop")))
	s.Require().NoError(s.cache.Add(ctx, listingcache.Parked("b.shop")))
	s.Require().NoError(s.cache.Remove(ctx, "a.shop"))

	all, err := s.cache.All(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("b.shop", all[0].Domain)
}

// TestConcurrentAddsAreNotLost exercises the WATCH/MULTI read-merge-write.
func (s *RedisCacheSuite) TestConcurrentAddsAreNotLost() {
	ctx := context.Background()
	const writers = 4

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.NoError(s.cache.Add(ctx, listingcache.Parked(fmt.Sprintf("domain-%d.shop", n))))
		}(i)
	}
	wg.Wait()

	all, err := s.cache.All(ctx)
	s.Require().NoError(err)
	s.Len(all, writers)
}

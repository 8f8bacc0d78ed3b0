// Package cache derives cache keys for timetable requests and stores
// upstream responses in Redis.
//
// Only two request shapes are cacheable:
//
//   - GET .../getOptimizedMatchingCourseTitles?term=CSC1&sessions=20251
//     keyed as titles:CSC1:20251
//   - POST .../getPageableCourses with courseCodeAndTitleProps.courseCode and
//     sessions in the JSON body, keyed as courses:CSC108H1:20251
//
// Sessions are split on commas, trimmed, uppercased, deduplicated and
// sorted, so "20252, 20251" and "20251,20252" share an entry. Any other
// parameter that differs from what the course checker frontend sends is
// appended as a name=value segment, e.g.
// courses:CSC108H1:20251:availableSpace=true. Segments are query-escaped.
// Everything else yields no key and is never cached.
//
// # Basic Usage
//
//	redisClient := cache.NewRedisClient(cache.StoreOptions{Host: "redis", Port: 6379})
//	if err := cache.Connect(ctx, redisClient, cache.DefaultRetryConfig(), logger); err != nil {
//		return err
//	}
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key, ok := cache.DeriveKey(cache.Request{
//		Method: "GET",
//		Path:   "getOptimizedMatchingCourseTitles",
//		Query:  url.Values{"term": {"CSC1"}, "sessions": {"20251"}},
//	})
//	if ok {
//		body, err := manager.Get(ctx, key)
//		if errors.Is(err, cache.ErrCacheMiss) {
//			// fetch from upstream, then manager.Set(ctx, key, body)
//		}
//	}
//
// # Metrics
//
//   - ttb_cache_hits_total{namespace}
//   - ttb_cache_misses_total{namespace}
//   - ttb_cache_stores_total{namespace}
//   - ttb_cache_stored_bytes_total
//   - ttb_cache_errors_total{operation}
package cache

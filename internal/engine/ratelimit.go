package engine

import "golang.org/x/time/rate"

// youtubeLimiter paces outbound youtube.com requests across all callers.
var youtubeLimiter = rate.NewLimiter(rate.Inf, 1)

func initYouTubeLimiter(rps float64, burst int) {
	if rps <= 0 {
		youtubeLimiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	if burst < 1 {
		burst = 1
	}
	youtubeLimiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// YouTubeLimiter returns the shared outbound limiter.
func YouTubeLimiter() *rate.Limiter { return youtubeLimiter }

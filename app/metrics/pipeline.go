package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(feedFetchSeconds, framesGeneratedTotal) }

var (
	feedFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_feed_fetch_seconds",
			Help:    "Feed fetch and parse latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"result"},
	)

	framesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "story_frames_generated_total",
			Help: "Frames written by successful pipeline runs.",
		},
	)
)

func ObserveFeedFetch(d time.Duration, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	feedFetchSeconds.WithLabelValues(result).Observe(d.Seconds())
}

func AddFramesGenerated(n int) {
	framesGeneratedTotal.Add(float64(n))
}

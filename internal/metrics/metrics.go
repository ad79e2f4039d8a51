// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsCore holds Prometheus metrics for the lock store, evaluation
// engine, and profile engine. Instruments are only meaningful once a
// caller starts the HTTP endpoint via Serve; registration happens lazily
// on first use so packages that never touch metrics never pay for it.
type metricsCore struct {
	once sync.Once

	lockRefreshTotal    prometheus.Counter
	lockRefreshFailures prometheus.Counter
	lockRefreshDuration prometheus.Histogram

	evalDuration  prometheus.Histogram
	evalFailures  prometheus.Counter
	buildDuration prometheus.Histogram
	buildFailures prometheus.Counter

	profileSwaps        prometheus.Counter
	profileSwapFailures prometheus.Counter
}

var core metricsCore

func (m *metricsCore) init() {
	m.once.Do(func() {
		buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

		m.lockRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "trix_lock_refresh_total", Help: "Lock input refresh attempts"})
		m.lockRefreshFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "trix_lock_refresh_failures_total", Help: "Lock input refresh failures"})
		m.lockRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "trix_lock_refresh_seconds", Help: "Lock refresh duration", Buckets: buckets})

		m.evalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "trix_eval_seconds", Help: "Attribute evaluation duration", Buckets: buckets})
		m.evalFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "trix_eval_failures_total", Help: "Evaluation failures"})
		m.buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "trix_build_seconds", Help: "Derivation build/realise duration", Buckets: buckets})
		m.buildFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "trix_build_failures_total", Help: "Build failures"})

		m.profileSwaps = prometheus.NewCounter(prometheus.CounterOpts{Name: "trix_profile_swaps_total", Help: "Profile generation swaps"})
		m.profileSwapFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "trix_profile_swap_failures_total", Help: "Profile generation swap failures"})

		prometheus.MustRegister(
			m.lockRefreshTotal, m.lockRefreshFailures, m.lockRefreshDuration,
			m.evalDuration, m.evalFailures, m.buildDuration, m.buildFailures,
			m.profileSwaps, m.profileSwapFailures,
		)
	})
}

// RecordLockRefresh records the outcome and duration of one input refresh.
func RecordLockRefresh(seconds float64, ok bool) {
	core.init()
	core.lockRefreshTotal.Inc()
	core.lockRefreshDuration.Observe(seconds)
	if !ok {
		core.lockRefreshFailures.Inc()
	}
}

// RecordEval records the duration and outcome of evaluating an attribute.
func RecordEval(seconds float64, ok bool) {
	core.init()
	core.evalDuration.Observe(seconds)
	if !ok {
		core.evalFailures.Inc()
	}
}

// RecordBuild records the duration and outcome of a derivation build.
func RecordBuild(seconds float64, ok bool) {
	core.init()
	core.buildDuration.Observe(seconds)
	if !ok {
		core.buildFailures.Inc()
	}
}

// RecordProfileSwap records one atomic profile generation swap.
func RecordProfileSwap(ok bool) {
	core.init()
	core.profileSwaps.Inc()
	if !ok {
		core.profileSwapFailures.Inc()
	}
}

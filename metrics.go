// Copyright 2026 Block, Inc.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"crypto/tls"
	"time"

	prometheusmetrics "github.com/deathowl/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rcrowley/go-metrics"
)

const metricsNamespace = "sslconfig"

// checkMetrics records check results in a go-metrics registry and, if a
// textfile is configured, exports them for the node_exporter textfile
// collector.
type checkMetrics struct {
	registry metrics.Registry
	textfile string

	promRegistry *prometheus.Registry
	provider     *prometheusmetrics.PrometheusConfig
}

func newCheckMetrics(textfile string) *checkMetrics {
	m := &checkMetrics{
		registry: metrics.NewRegistry(),
		textfile: textfile,
	}
	if textfile != "" {
		m.promRegistry = prometheus.NewRegistry()
		m.provider = prometheusmetrics.NewPrometheusProvider(m.registry, metricsNamespace, "", m.promRegistry, time.Second)
	}
	return m
}

func (m *checkMetrics) observe(start time.Time, err error) {
	metrics.GetOrRegisterTimer("check.duration", m.registry).UpdateSince(start)
	metrics.GetOrRegisterCounter("checks", m.registry).Inc(1)
	if err != nil {
		metrics.GetOrRegisterCounter("check.failures", m.registry).Inc(1)
	}
}

// observeExpiry sets the expiry gauge to the seconds left until the first
// identity certificate of the given contexts expires.
func (m *checkMetrics) observeExpiry(contexts []*tls.Config) {
	var soonest time.Time
	for _, tlsConfig := range contexts {
		for _, cert := range tlsConfig.Certificates {
			if cert.Leaf != nil && (soonest.IsZero() || cert.Leaf.NotAfter.Before(soonest)) {
				soonest = cert.Leaf.NotAfter
			}
		}
	}
	if soonest.IsZero() {
		return
	}
	metrics.GetOrRegisterGauge("certificate.expiry.seconds", m.registry).Update(int64(time.Until(soonest).Seconds()))
}

// export writes all metrics to the textfile, if one is configured.
func (m *checkMetrics) export() error {
	if m.provider == nil {
		return nil
	}
	if err := m.provider.UpdatePrometheusMetricsOnce(); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(m.textfile, m.promRegistry)
}

// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package social

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stem_social",
		Name:      "operations_total",
		Help:      "Operations by name and result.",
	}, []string{"op", "result"})

	metricBytesGrown = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stem_social",
		Name:      "bytes_grown_total",
		Help:      "Bytes added to record capacities by committed operations.",
	}, []string{"kind"})

	metricRecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stem_social",
		Name:      "records_created_total",
		Help:      "Records created by committed operations.",
	}, []string{"kind"})
)

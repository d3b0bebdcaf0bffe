package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics counts ledger activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	listingsCreated prometheus.Counter
	sales           prometheus.Counter
	cancellations   prometheus.Counter
	failures        *prometheus.CounterVec
	volume          *prometheus.CounterVec
	discrepancies   prometheus.Gauge
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		listingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "listings_created",
			Help:      "number of listings added to the market",
		}),
		sales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "sales",
			Help:      "number of listings sold",
		}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "cancellations",
			Help:      "number of listings cancelled by their seller",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "failures",
			Help:      "number of rejected operations by operation and error kind",
		}, []string{"operation", "kind"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "sale_volume",
			Help:      "payment units disbursed by sales, by recipient role",
		}, []string{"component"}),
		discrepancies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "market",
			Name:      "escrow_discrepancies",
			Help:      "active listings whose asset was not held by escrow at the last reconciliation",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.listingsCreated,
		m.sales,
		m.cancellations,
		m.failures,
		m.volume,
		m.discrepancies,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ListingCreated() {
	if m == nil {
		return
	}
	m.listingsCreated.Inc()
}

func (m *Metrics) Cancelled() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

func (m *Metrics) Sold(fee, royalty, seller decimal.Decimal) {
	if m == nil {
		return
	}
	m.sales.Inc()
	m.volume.WithLabelValues("fee").Add(fee.InexactFloat64())
	m.volume.WithLabelValues("royalty").Add(royalty.InexactFloat64())
	m.volume.WithLabelValues("seller").Add(seller.InexactFloat64())
}

func (m *Metrics) Failed(operation, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) EscrowDiscrepancies(n int) {
	if m == nil {
		return
	}
	m.discrepancies.Set(float64(n))
}

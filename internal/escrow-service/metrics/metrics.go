package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/racers-escrow/internal/escrow"
)

// Metrics agrupa os contadores do escrow-service e do vault-service.
type Metrics struct {
	Operations *prometheus.CounterVec // por operação e resultado (OK ou código)
	Volume     *prometheus.CounterVec // unidades base movimentadas por tipo
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_operations_total",
			Help: "operações por resultado",
		}, []string{"op", "result"}),
		Volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_volume_units_total",
			Help: "unidades base movimentadas (stake, payout, rakeback, deposit, withdraw)",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.Operations, m.Volume)
	return m
}

// Observe registra o resultado de uma operação.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	result := "OK"
	if err != nil {
		result = string(escrow.CodeOf(err))
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) AddVolume(kind string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.Volume.WithLabelValues(kind).Add(float64(amount))
}

package metrics_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/luma/lodestone/internal/metrics"
)

var _ = Describe("Metrics", func() {
	It("is a no-op on nil", func() {
		var m *metrics.Metrics

		Expect(func() {
			m.FrameReceived("Play")
			m.FrameSent(true)
			m.BytesReceived(10)
			m.ConnectionOpened()
			m.Login("ok")
		}).NotTo(Panic())
	})

	It("registers and counts", func() {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		m.BytesReceived(10)
		m.BytesReceived(5)
		m.ConnectionOpened()
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.UnknownPacket("Play")

		families, err := reg.Gather()
		Expect(err).NotTo(HaveOccurred())

		values := map[string]float64{}
		for _, f := range families {
			for _, metric := range f.GetMetric() {
				switch {
				case metric.Counter != nil:
					values[f.GetName()] += metric.Counter.GetValue()
				case metric.Gauge != nil:
					values[f.GetName()] += metric.Gauge.GetValue()
				}
			}
		}

		Expect(values).To(HaveKeyWithValue("lodestone_transport_received_bytes_total", 15.0))
		Expect(values).To(HaveKeyWithValue("lodestone_transport_connections", 1.0))
		Expect(values).To(HaveKeyWithValue("lodestone_protocol_unknown_packets_total", 1.0))
		n, err := testutil.GatherAndCount(reg, "lodestone_protocol_unknown_packets_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})
})

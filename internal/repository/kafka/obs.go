package kafka

import "github.com/segmentio/kafka-go"

// mapCarrierFromKafka adapts message headers to the OTEL TextMapCarrier
// read side so a producer-injected trace context survives the hop.
type mapCarrierFromKafka []kafka.Header

func (h mapCarrierFromKafka) Get(k string) string {
	for _, x := range h {
		if x.Key == k {
			return string(x.Value)
		}
	}
	return ""
}

func (h mapCarrierFromKafka) Set(string, string) {}

func (h mapCarrierFromKafka) Keys() []string {
	ks := make([]string, 0, len(h))
	for _, x := range h {
		ks = append(ks, x.Key)
	}
	return ks
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/docsearch/pkg/eventstream"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *Publisher
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		writer = &recordingWriter{}
		publisher = &Publisher{writer: writer}
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{})
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer for the default topic", func() {
		p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		w, ok := p.writer.(*kafka.Writer)
		Expect(ok).To(BeTrue())
		Expect(w.Topic).To(Equal(DefaultTopic))
	})

	It("rejects nil events", func() {
		Expect(publisher.PublishIngested(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("writes the event as JSON keyed by document ID", func() {
		event := eventstream.NewDocumentIngestedEvent(
			eventstream.EventSource{Origin: "api"},
			eventstream.DocumentMeta{ID: "report", Dimensions: 3},
		)
		Expect(publisher.PublishIngested(ctx, event)).To(Succeed())

		Expect(writer.messages).To(HaveLen(1))
		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("report"))

		var decoded eventstream.DocumentIngestedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Document.Dimensions).To(Equal(3))
	})

	It("wraps write failures", func() {
		writer.err = errors.New("broker down")
		event := eventstream.NewDocumentIngestedEvent(eventstream.EventSource{}, eventstream.DocumentMeta{ID: "a"})
		err := publisher.PublishIngested(ctx, event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})

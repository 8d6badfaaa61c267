package retrieve_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docsearch/pkg/ingest"
	dslogger "github.com/papercomputeco/docsearch/pkg/logger"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
	testutils "github.com/papercomputeco/docsearch/pkg/utils/test"
	"github.com/papercomputeco/docsearch/pkg/vector"
	"github.com/papercomputeco/docsearch/pkg/vector/inmemory"
)

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		embedder  *testutils.MockEmbedder
		driver    *inmemory.Driver
		generator *testutils.MockGenerator
		svc       *retrieve.Service
	)

	insert := func(id string, embedding []float32, content string) {
		Expect(driver.Insert(ctx, vector.Document{ID: id, Embedding: embedding, Content: content})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = inmemory.NewDriver(inmemory.Config{})
		generator = &testutils.MockGenerator{Answer: "The answer."}

		var err error
		svc, err = retrieve.NewService(retrieve.Config{
			Embedder:  embedder,
			Driver:    driver,
			Generator: generator,
			Logger:    dslogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an embedder and a driver", func() {
		_, err := retrieve.NewService(retrieve.Config{Driver: driver})
		Expect(err).To(HaveOccurred())
		_, err = retrieve.NewService(retrieve.Config{Embedder: embedder})
		Expect(err).To(HaveOccurred())
	})

	Describe("Retrieve", func() {
		It("rejects empty and whitespace queries", func() {
			for _, q := range []string{"", "   \n"} {
				_, err := svc.Retrieve(ctx, q, retrieve.Options{})
				Expect(errors.Is(err, vector.ErrInvalidInput)).To(BeTrue())
			}
			Expect(embedder.Calls()).To(BeEmpty())
		})

		It("logs documents that could not be scored", func() {
			var logs bytes.Buffer
			logged, err := retrieve.NewService(retrieve.Config{
				Embedder: embedder,
				Driver:   driver,
				Logger:   dslogger.New(dslogger.WithJSON(true), dslogger.WithWriter(&logs)),
			})
			Expect(err).NotTo(HaveOccurred())

			embedder.Embeddings["query"] = []float32{1, 0}
			insert("zero", []float32{0, 0}, "empty vector")
			insert("a", []float32{1, 0}, "alpha")

			result, err := logged.Retrieve(ctx, "query", retrieve.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Match.ID).To(Equal("a"))
			Expect(logs.String()).To(ContainSubstring("document skipped during scan"))
			Expect(logs.String()).To(ContainSubstring(`"id":"zero"`))
			Expect(logs.String()).To(ContainSubstring("similarity score is NaN"))
		})

		It("returns no match for an empty store", func() {
			embedder.Embeddings["anything"] = []float32{1, 0}

			result, err := svc.Retrieve(ctx, "anything", retrieve.Options{Generate: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Match).To(BeNil())
			Expect(result.Answer).To(BeEmpty())
		})

		It("returns the nearest document", func() {
			insert("a", []float32{1, 0}, "doc a")
			insert("b", []float32{0, 1}, "doc b")
			insert("c", []float32{0.9, 0.1}, "doc c")
			embedder.Embeddings["query"] = []float32{1, 0}

			result, err := svc.Retrieve(ctx, "query", retrieve.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Match.ID).To(Equal("a"))
			Expect(result.Match.Score).To(BeNumerically("~", 1.0, 1e-9))
			Expect(result.Answer).To(BeEmpty())
		})

		It("finds a document ingested with the same text", func() {
			embedder.Embeddings["alpha text"] = []float32{0.3, 0.7, 0.1}
			embedder.Embeddings["beta text"] = []float32{0.9, 0.05, 0.2}

			ingester, err := ingest.NewService(ingest.Config{Embedder: embedder, Driver: driver, Logger: dslogger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(ingester.Ingest(ctx, "alpha", "alpha text")).To(Succeed())
			Expect(ingester.Ingest(ctx, "beta", "beta text")).To(Succeed())

			result, err := svc.Retrieve(ctx, "alpha text", retrieve.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Match.ID).To(Equal("alpha"))
			Expect(result.Match.Score).To(BeNumerically("~", 1.0, 1e-6))
		})

		It("returns no match when every document has another dimension", func() {
			insert("wide", []float32{1, 0, 0}, "")
			embedder.Embeddings["q"] = []float32{1, 0}

			result, err := svc.Retrieve(ctx, "q", retrieve.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Match).To(BeNil())
		})

		It("propagates embedding failures", func() {
			embedder.FailAll = true
			_, err := svc.Retrieve(ctx, "q", retrieve.Options{})
			Expect(errors.Is(err, vector.ErrEmbeddingUnavailable)).To(BeTrue())
		})

		It("maps a slow embedder to a dependency timeout", func() {
			embedder.Delay = time.Second
			slow, err := retrieve.NewService(retrieve.Config{
				Embedder:     embedder,
				Driver:       driver,
				EmbedTimeout: 20 * time.Millisecond,
				Logger:       dslogger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = slow.Retrieve(ctx, "q", retrieve.Options{})
			Expect(errors.Is(err, vector.ErrDependencyTimeout)).To(BeTrue())
		})

		It("propagates store failures", func() {
			failing := testutils.NewMockVectorDriver()
			failing.ListErr = vector.ErrStoreFailure
			s, err := retrieve.NewService(retrieve.Config{Embedder: embedder, Driver: failing, Logger: dslogger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Retrieve(ctx, "q", retrieve.Options{})
			Expect(errors.Is(err, vector.ErrStoreFailure)).To(BeTrue())
		})

		Context("with answer generation", func() {
			BeforeEach(func() {
				insert("a", []float32{1, 0}, "the sky is blue")
				embedder.Embeddings["what colour is the sky"] = []float32{1, 0}
			})

			It("answers from the matched content", func() {
				result, err := svc.Retrieve(ctx, "what colour is the sky", retrieve.Options{Generate: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Answer).To(Equal("The answer."))
				Expect(result.Warnings).To(BeEmpty())
				Expect(generator.LastContent).To(Equal("the sky is blue"))
				Expect(generator.LastQuery).To(Equal("what colour is the sky"))
			})

			It("does not generate unless asked", func() {
				result, err := svc.Retrieve(ctx, "what colour is the sky", retrieve.Options{})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Answer).To(BeEmpty())
				Expect(generator.LastQuery).To(BeEmpty())
			})

			It("degrades a generation failure to a warning", func() {
				generator.Err = errors.New("model offline")

				result, err := svc.Retrieve(ctx, "what colour is the sky", retrieve.Options{Generate: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Match.ID).To(Equal("a"))
				Expect(result.Match.Score).To(BeNumerically("~", 1.0, 1e-9))
				Expect(result.Answer).To(BeEmpty())
				Expect(result.Warnings).To(ConsistOf(ContainSubstring("model offline")))
			})

			It("warns when no generator is configured", func() {
				s, err := retrieve.NewService(retrieve.Config{Embedder: embedder, Driver: driver, Logger: dslogger.Nop()})
				Expect(err).NotTo(HaveOccurred())
				Expect(s.HasGenerator()).To(BeFalse())

				result, err := s.Retrieve(ctx, "what colour is the sky", retrieve.Options{Generate: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Match).NotTo(BeNil())
				Expect(result.Warnings).To(HaveLen(1))
			})
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			for i, e := range [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}, {0.7, 0.7}, {0.5, 0.4}, {0.1, 0.9}} {
				insert(string(rune('a'+i)), e, "")
			}
			embedder.Embeddings["q"] = []float32{1, 0}
		})

		It("defaults to five results", func() {
			matches, err := svc.Search(ctx, "q", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(retrieve.DefaultTopK))
			Expect(matches[0].ID).To(Equal("a"))
		})

		It("returns results by descending score", func() {
			matches, err := svc.Search(ctx, "q", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
			Expect(matches[0].Score).To(BeNumerically(">=", matches[1].Score))
			Expect(matches[1].Score).To(BeNumerically(">=", matches[2].Score))
		})

		It("rejects an empty query", func() {
			_, err := svc.Search(ctx, "", 3)
			Expect(errors.Is(err, vector.ErrInvalidInput)).To(BeTrue())
		})
	})
})

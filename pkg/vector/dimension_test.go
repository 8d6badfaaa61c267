package vector_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

var _ = Describe("Dimension", func() {
	It("is established by the first check when unset", func() {
		d := vector.NewDimension(0)
		Expect(d.Size()).To(Equal(0))
		Expect(d.Check(3)).To(Succeed())
		Expect(d.Size()).To(Equal(3))
		Expect(d.Check(3)).To(Succeed())
		Expect(d.Check(4)).To(MatchError(vector.ErrInvalidInput))
	})

	It("enforces a configured size", func() {
		d := vector.NewDimension(2)
		Expect(d.Check(2)).To(Succeed())
		Expect(d.Check(3)).To(MatchError(vector.ErrInvalidInput))
	})

	It("rejects empty embeddings", func() {
		Expect(vector.NewDimension(0).Check(0)).To(MatchError(vector.ErrInvalidInput))
	})

	It("requires a document id", func() {
		err := vector.ValidateDocument(vector.Document{ID: "  ", Embedding: []float32{1}}, vector.NewDimension(1))
		Expect(err).To(MatchError(vector.ErrInvalidInput))
	})
})

var _ = Describe("ReconcileDimension", func() {
	DescribeTable("picks the store dimension",
		func(configured, stored, want int) {
			got, err := vector.ReconcileDimension(configured, stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty store, unconfigured", 0, 0, 0),
		Entry("empty store, configured", 768, 0, 768),
		Entry("seeded from stored records", 0, 384, 384),
		Entry("configured and stored agree", 768, 768, 768),
	)

	It("rejects a configured dimension that disagrees with stored records", func() {
		_, err := vector.ReconcileDimension(384, 768)
		Expect(err).To(MatchError(vector.ErrInvalidInput))
		Expect(err).To(MatchError(ContainSubstring("768-dimension")))
	})

	It("makes a seeded dimension reject other lengths", func() {
		n, err := vector.ReconcileDimension(0, 768)
		Expect(err).NotTo(HaveOccurred())
		d := vector.NewDimension(n)
		Expect(d.Check(384)).To(MatchError(vector.ErrInvalidInput))
		Expect(d.Check(768)).To(Succeed())
	})
})

var _ = Describe("ParseConflictPolicy", func() {
	It("defaults to overwrite", func() {
		p, err := vector.ParseConflictPolicy("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(vector.ConflictOverwrite))
	})

	It("parses reject case-insensitively", func() {
		p, err := vector.ParseConflictPolicy("Reject")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(vector.ConflictReject))
	})

	It("rejects unknown values", func() {
		_, err := vector.ParseConflictPolicy("merge")
		Expect(err).To(MatchError(vector.ErrInvalidInput))
	})
})

var _ = Describe("WithTimeout", func() {
	It("returns the value when the call finishes in time", func() {
		v, err := vector.WithTimeout(context.Background(), time.Second, "embed", func(context.Context) (int, error) {
			return 7, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(7))
	})

	It("maps an exceeded deadline to ErrDependencyTimeout", func() {
		_, err := vector.WithTimeout(context.Background(), 10*time.Millisecond, "embed", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		Expect(err).To(MatchError(vector.ErrDependencyTimeout))
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("keeps the original error class when the deadline fires inside a wrapped error", func() {
		_, err := vector.WithTimeout(context.Background(), 10*time.Millisecond, "embed", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, errors.Join(vector.ErrEmbeddingUnavailable, ctx.Err())
		})
		Expect(err).To(MatchError(vector.ErrDependencyTimeout))
		Expect(err).To(MatchError(vector.ErrEmbeddingUnavailable))
	})

	It("passes other errors through unchanged", func() {
		_, err := vector.WithTimeout(context.Background(), time.Second, "store", func(context.Context) (int, error) {
			return 0, vector.ErrStoreFailure
		})
		Expect(err).To(Equal(vector.ErrStoreFailure))
	})

	It("runs without a deadline when the duration is zero", func() {
		_, err := vector.WithTimeout(context.Background(), 0, "store", func(ctx context.Context) (bool, error) {
			_, ok := ctx.Deadline()
			Expect(ok).To(BeFalse())
			return true, nil
		})
		Expect(err).NotTo(HaveOccurred())
	})
})

package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	dslogger "github.com/papercomputeco/docsearch/pkg/logger"
	"github.com/papercomputeco/docsearch/pkg/vector/inmemory"
	"github.com/papercomputeco/docsearch/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/docsearch/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	ctx := context.Background()

	It("defaults to the in-memory store", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{Logger: dslogger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("builds a sqlite-vec store", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderSQLiteVec,
			Target:       ":memory:",
			Dimensions:   3,
			Logger:       dslogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{ProviderType: "faiss"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})
})

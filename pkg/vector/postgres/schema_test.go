package postgres

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("createTableSQL", func() {
	It("creates the documents table once with a quoted name", func() {
		ddl := createTableSQL("docs")
		Expect(ddl).To(HavePrefix(`CREATE TABLE IF NOT EXISTS "docs" (`))
		Expect(ddl).To(ContainSubstring("id text PRIMARY KEY"))
		Expect(ddl).To(ContainSubstring("seq bigserial NOT NULL"))
		Expect(ddl).To(ContainSubstring("dimensions integer NOT NULL"))
	})

	It("escapes quotes in the table name", func() {
		Expect(createTableSQL(`we"ird`)).To(ContainSubstring(`"we""ird"`))
	})
})

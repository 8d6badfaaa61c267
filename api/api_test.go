package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/papercomputeco/docsearch/api/search"
	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/llm"
	dslogger "github.com/papercomputeco/docsearch/pkg/logger"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
	testutils "github.com/papercomputeco/docsearch/pkg/utils/test"
	"github.com/papercomputeco/docsearch/pkg/vector"
	"github.com/papercomputeco/docsearch/pkg/vector/inmemory"
)

func doRequest(s *Server, method, target, body string) (*http.Response, []byte) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, data
}

var _ = Describe("Server", func() {
	var (
		server    *Server
		driver    *inmemory.Driver
		embedder  *testutils.MockEmbedder
		generator *testutils.MockGenerator
	)

	newServer := func(d vector.Driver) *Server {
		logger := dslogger.Nop()
		ingester, err := ingest.NewService(ingest.Config{Embedder: embedder, Driver: d, Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		retriever, err := retrieve.NewService(retrieve.Config{Embedder: embedder, Driver: d, Generator: generator, Logger: logger})
		Expect(err).NotTo(HaveOccurred())

		s, err := NewServer(Config{
			ListenAddr: ":0",
			Driver:     d,
			Ingester:   ingester,
			Retriever:  retriever,
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings["alpha"] = []float32{1, 0}
		embedder.Embeddings["beta"] = []float32{0, 1}
		embedder.Embeddings["gamma"] = []float32{0.9, 0.1}
		generator = &testutils.MockGenerator{Answer: "It is alpha."}
		driver = inmemory.NewDriver(inmemory.Config{Dimensions: 2})
		server = newServer(driver)
	})

	ingestDoc := func(id, text string) {
		resp, _ := doRequest(server, http.MethodPost, "/v1/documents", fmt.Sprintf(`{"id":%q,"text":%q}`, id, text))
		Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
	}

	It("answers ping", func() {
		resp, body := doRequest(server, http.MethodGet, "/ping", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("POST /v1/documents", func() {
		It("stores the document", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/documents", `{"id":"a","text":"alpha"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
			Expect(string(body)).To(MatchJSON(`{"id":"a"}`))

			n, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})

		It("returns 400 for a malformed body or missing id", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/documents", `{"id":`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			resp, _ = doRequest(server, http.MethodPost, "/v1/documents", `{"text":"alpha"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 for a wrong-dimension embedding", func() {
			embedder.Embeddings["wide"] = []float32{1, 2, 3}
			resp, body := doRequest(server, http.MethodPost, "/v1/documents", `{"id":"w","text":"wide"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("invalid input"))
		})

		It("returns 502 when the embedder is unavailable", func() {
			embedder.FailAll = true
			resp, _ := doRequest(server, http.MethodPost, "/v1/documents", `{"id":"a","text":"alpha"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
		})

		It("returns 409 when the store rejects duplicates", func() {
			driver = inmemory.NewDriver(inmemory.Config{Conflict: vector.ConflictReject})
			server = newServer(driver)

			ingestDoc("a", "alpha")
			resp, _ := doRequest(server, http.MethodPost, "/v1/documents", `{"id":"a","text":"beta"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
		})

		It("returns 500 for store failures", func() {
			failing := testutils.NewMockVectorDriver()
			failing.InsertErr = fmt.Errorf("%w: disk full", vector.ErrStoreFailure)
			server = newServer(failing)

			resp, _ := doRequest(server, http.MethodPost, "/v1/documents", `{"id":"a","text":"alpha"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
		})
	})

	Describe("document admin endpoints", func() {
		BeforeEach(func() {
			ingestDoc("a", "alpha")
			ingestDoc("b", "beta")
		})

		It("lists ids", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/documents", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(string(body)).To(MatchJSON(`{"count":2,"ids":["a","b"]}`))
		})

		It("gets a document", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/documents/a", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var doc DocumentResponse
			Expect(json.Unmarshal(body, &doc)).To(Succeed())
			Expect(doc.ID).To(Equal("a"))
			Expect(doc.Content).To(Equal("alpha"))
			Expect(doc.Dimensions).To(Equal(2))
			Expect(doc.IngestedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})

		It("returns 404 for a missing document", func() {
			resp, _ := doRequest(server, http.MethodGet, "/v1/documents/zzz", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("deletes a document", func() {
			resp, _ := doRequest(server, http.MethodDelete, "/v1/documents/a", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

			resp, _ = doRequest(server, http.MethodGet, "/v1/documents/a", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("GET /v1/retrieve", func() {
		It("returns 400 for an empty query", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/retrieve?query=", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var errResp llm.ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(ContainSubstring("query is empty"))
		})

		It("returns 400 for a malformed answer flag", func() {
			resp, _ := doRequest(server, http.MethodGet, "/v1/retrieve?query=alpha&answer=perhaps", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns a null match for an empty store", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/retrieve?query=alpha", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(string(body)).To(MatchJSON(`{"query":"alpha","match":null}`))
		})

		It("returns the best match", func() {
			ingestDoc("a", "alpha")
			ingestDoc("b", "beta")
			ingestDoc("c", "gamma")

			resp, body := doRequest(server, http.MethodGet, "/v1/retrieve?query=alpha", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out apisearch.RetrieveOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Match.ID).To(Equal("a"))
			Expect(out.Match.Score).To(BeNumerically("~", 1.0, 1e-9))
			Expect(out.Answer).To(BeEmpty())
		})

		It("includes a generated answer when asked", func() {
			ingestDoc("a", "alpha")

			_, body := doRequest(server, http.MethodGet, "/v1/retrieve?query=alpha&answer=true", "")
			var out apisearch.RetrieveOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Answer).To(Equal("It is alpha."))
		})

		It("keeps the match when generation fails", func() {
			ingestDoc("a", "alpha")
			generator.Err = errors.New("model offline")

			resp, body := doRequest(server, http.MethodGet, "/v1/retrieve?query=alpha&answer=true", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out apisearch.RetrieveOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Match.ID).To(Equal("a"))
			Expect(out.Answer).To(BeEmpty())
			Expect(out.Warnings).To(ConsistOf(ContainSubstring("model offline")))
		})

		It("returns 504 when the embedder times out", func() {
			embedder.Delay = time.Second
			logger := dslogger.Nop()
			retriever, err := retrieve.NewService(retrieve.Config{
				Embedder:     embedder,
				Driver:       driver,
				EmbedTimeout: 10 * time.Millisecond,
				Logger:       logger,
			})
			Expect(err).NotTo(HaveOccurred())
			server, err = NewServer(Config{Driver: driver, Retriever: retriever, DisableMCP: true}, logger)
			Expect(err).NotTo(HaveOccurred())

			resp, _ := doRequest(server, http.MethodGet, "/v1/retrieve?query=alpha", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusGatewayTimeout))
		})
	})

	Describe("GET /v1/search", func() {
		BeforeEach(func() {
			ingestDoc("a", "alpha")
			ingestDoc("b", "beta")
			ingestDoc("c", "gamma")
		})

		It("returns results by descending score", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/search?query=alpha&top_k=2", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out apisearch.SearchOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].ID).To(Equal("a"))
			Expect(out.Results[1].ID).To(Equal("c"))
			Expect(out.Results[0].Preview).To(Equal("alpha"))
		})

		It("returns 400 for invalid top_k", func() {
			for _, v := range []string{"0", "-1", "abc"} {
				resp, _ := doRequest(server, http.MethodGet, "/v1/search?query=alpha&top_k="+v, "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			}
		})
	})

	Context("when the pipeline is not configured", func() {
		It("returns 503", func() {
			s, err := NewServer(Config{ListenAddr: ":0"}, dslogger.Nop())
			Expect(err).NotTo(HaveOccurred())

			for _, target := range []string{"/v1/retrieve?query=a", "/v1/search?query=a", "/v1/documents"} {
				resp, _ := doRequest(s, http.MethodGet, target, "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
			}
			resp, _ := doRequest(s, http.MethodPost, "/v1/documents", `{"id":"a","text":"b"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	It("mounts the MCP handler", func() {
		resp, _ := doRequest(server, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		Expect(resp.StatusCode).NotTo(Equal(fiber.StatusNotFound))
	})
})

var _ = Describe("statusFor", func() {
	DescribeTable("maps errors to status codes",
		func(err error, want int) {
			Expect(statusFor(err)).To(Equal(want))
		},
		Entry("invalid input", fmt.Errorf("%w: x", vector.ErrInvalidInput), fiber.StatusBadRequest),
		Entry("not found", vector.ErrNotFound, fiber.StatusNotFound),
		Entry("duplicate", vector.ErrDuplicateID, fiber.StatusConflict),
		Entry("embedding", vector.ErrEmbeddingUnavailable, fiber.StatusBadGateway),
		Entry("timeout wrapping embedding", fmt.Errorf("%w: %w", vector.ErrDependencyTimeout, vector.ErrEmbeddingUnavailable), fiber.StatusGatewayTimeout),
		Entry("store", vector.ErrStoreFailure, fiber.StatusInternalServerError),
		Entry("other", errors.New("boom"), fiber.StatusInternalServerError),
	)
})

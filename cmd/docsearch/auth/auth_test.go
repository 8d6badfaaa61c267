package authcmder_test

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/docsearch/cmd/docsearch/auth"
	"github.com/papercomputeco/docsearch/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	execute := func(stdin string, args ...string) (string, error) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .docsearch/ config directory")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		err := cmd.Execute()
		return ansi.Strip(out.String()), err
	}

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	It("stores a piped key", func() {
		out, err := execute("sk-piped\n", "openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Stored openai credentials"))

		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("sk-piped"))
	})

	It("rejects an empty key", func() {
		_, err := execute("   \n", "anthropic")
		Expect(err).To(MatchError(ContainSubstring("cannot be empty")))
	})

	It("rejects unsupported providers", func() {
		_, err := execute("key\n", "ollama")
		Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
	})

	It("requires a provider", func() {
		_, err := execute("")
		Expect(err).To(MatchError(ContainSubstring("provider argument required")))
	})

	It("lists stored providers", func() {
		out, err := execute("", "--list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No stored credentials"))

		_, err = execute("sk-ant\n", "anthropic")
		Expect(err).NotTo(HaveOccurred())

		out, err = execute("", "--list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("anthropic"))
	})

	It("removes stored credentials", func() {
		_, err := execute("sk-piped\n", "openai")
		Expect(err).NotTo(HaveOccurred())

		_, err = execute("", "--remove", "openai")
		Expect(err).NotTo(HaveOccurred())

		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		providers, err := mgr.ListProviders()
		Expect(err).NotTo(HaveOccurred())
		Expect(providers).To(BeEmpty())
	})
})

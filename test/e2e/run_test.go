package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/roach88/chr/internal/cli"
	"github.com/roach88/chr/internal/compiler"
	"github.com/roach88/chr/internal/engine"
)

var _ = Describe("chr run", func() {
	When("counting up to five", func() {
		It("prints the single counted constraint", func() {
			res := chr("run", programPath("counting.chr"), programPath("counting.facts"))
			Expect(res.err).ToNot(HaveOccurred())
			Expect(res.stdout).To(Equal("counted(5)\n"))
		})

		It("reaches the same fixpoint from every rule format and strategy", func() {
			for _, args := range [][]string{
				{"run", programPath("counting.cue"), programPath("counting.facts")},
				{"run", "--strategy", "batch", programPath("counting.chr"), programPath("counting.facts")},
				{"run", "--mode", "exhaustive", programPath("counting.chr"), programPath("counting.facts")},
			} {
				res := chr(args...)
				Expect(res.err).ToNot(HaveOccurred())
				lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
				Expect(lines[len(lines)-1]).To(Equal("counted(5)"))
			}
		})
	})

	When("sieving primes up to ten", func() {
		It("leaves exactly the primes", func() {
			res := chr("run", programPath("sieve.chr"), programPath("sieve.facts"))
			Expect(res.err).ToNot(HaveOccurred())
			lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
			Expect(lines).To(ConsistOf("prime(2)", "prime(3)", "prime(5)", "prime(7)"))
		})

		It("prints every dirty batch round", func() {
			res := chr("run", "--strategy", "batch", programPath("sieve.chr"), programPath("sieve.facts"))
			Expect(res.err).ToNot(HaveOccurred())
			Expect(res.stdout).To(HavePrefix("round 0\nupto(10)\nround 1\n"))
		})
	})

	When("a rule has no arrow", func() {
		It("fails before matching and prints nothing", func() {
			res := chr("run", programPath("missing_arrow.chr"), programPath("counting.facts"))
			Expect(res.err).To(HaveOccurred())
			Expect(res.exitCode).To(Equal(cli.ExitCommandError))
			Expect(compiler.CompileErrorCode(res.err)).To(Equal(compiler.ErrMissingArrow))
			Expect(res.stdout).To(BeEmpty())
		})
	})

	When("an argument is missing", func() {
		It("is a usage error", func() {
			res := chr("run", programPath("counting.chr"))
			Expect(res.err).To(HaveOccurred())
			Expect(res.exitCode).To(Equal(cli.ExitCommandError))
			Expect(res.err.Error()).To(ContainSubstring("Usage: chr run <rules> <facts>"))
		})
	})

	When("a program does not terminate", func() {
		It("stops at the step quota without a partial store", func() {
			facts := filepath.Join(GinkgoT().TempDir(), "loop.facts")
			Expect(os.WriteFile(facts, []byte("p(0)\n"), 0644)).To(Succeed())

			res := chr("run", "--max-steps", "25", programPath("loop.chr"), facts)
			Expect(res.exitCode).To(Equal(cli.ExitFailure))
			Expect(engine.IsQuotaError(res.err)).To(BeTrue())
			Expect(res.stdout).To(BeEmpty())
		})
	})

	When("output is JSON", func() {
		It("reports the run ID and store", func() {
			res := chr("--format", "json", "run", programPath("gcd.tsv"), programPath("gcd.facts"))
			Expect(res.err).ToNot(HaveOccurred())

			var resp struct {
				Status string        `json:"status"`
				Data   cli.RunOutput `json:"data"`
			}
			Expect(json.Unmarshal([]byte(res.stdout), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("ok"))
			Expect(resp.Data.Store).To(Equal([]string{"gcd(3)"}))
			Expect(resp.Data.RunID).ToNot(BeEmpty())
		})
	})
})

var _ = Describe("chr check", func() {
	It("prints a program that compiles to the same rules", func() {
		res := chr("check", programPath("sieve.chr"))
		Expect(res.err).ToNot(HaveOccurred())

		again, err := compiler.ParseRules(res.stdout, "check output")
		Expect(err).ToNot(HaveOccurred())
		Expect(again).To(HaveLen(3))
	})
})

var _ = Describe("chr test", func() {
	It("passes every shipped scenario", func() {
		res := chr("test", filepath.Join(testdataDir, "scenarios"))
		Expect(res.err).ToNot(HaveOccurred())
		Expect(res.stdout).To(ContainSubstring("0 failed"))
		Expect(res.stdout).To(ContainSubstring("All scenarios passed"))
	})
})

var _ = Describe("chr trace", func() {
	var dbPath string

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "chr.db")
	})

	It("replays the firings of a journaled run", func() {
		res := chr("run", "--journal", dbPath, programPath("counting.chr"), programPath("counting.facts"))
		Expect(res.err).ToNot(HaveOccurred())

		res = chr("trace", "--journal", dbPath)
		Expect(res.err).ToNot(HaveOccurred())
		Expect(res.stdout).To(ContainSubstring("Status: finished"))
		Expect(res.stdout).To(ContainSubstring("[1] start {N=5}"))
		Expect(res.stdout).To(ContainSubstring("done: 1"))
	})

	It("records failed runs", func() {
		facts := filepath.Join(GinkgoT().TempDir(), "loop.facts")
		Expect(os.WriteFile(facts, []byte("p(0)\n"), 0644)).To(Succeed())

		res := chr("run", "--journal", dbPath, "--max-steps", "5", programPath("loop.chr"), facts)
		Expect(res.exitCode).To(Equal(cli.ExitFailure))

		res = chr("--format", "json", "trace", "--journal", dbPath)
		Expect(res.err).ToNot(HaveOccurred())

		var resp struct {
			Data cli.TraceResult `json:"data"`
		}
		Expect(json.Unmarshal([]byte(res.stdout), &resp)).To(Succeed())
		Expect(resp.Data.Status).To(Equal("failed"))
		Expect(resp.Data.ErrorCode).To(Equal("QUOTA_EXCEEDED"))
		Expect(resp.Data.Timeline).To(HaveLen(5))
		Expect(resp.Data.Store).To(BeNil())
	})
})

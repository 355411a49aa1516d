package processor

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/task"
)

// newScenarioProcessor builds an isolated Processor + backing memstores for
// one spec, mirroring newTestProcessor but without depending on *testing.T.
func newScenarioProcessor() (*Processor, *testResolver) {
	resolver := newTestResolver()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	dir, err := os.MkdirTemp("", "dupmill-scenario-*")
	Expect(err).NotTo(HaveOccurred())
	cfg := Config{StagingDir: dir, Retry: retry.Options{Attempts: 2}}
	return New(cfg, resolver, m), resolver
}

var _ = Describe("content reconciliation", func() {
	var (
		p        *Processor
		resolver *testResolver
		ctx      context.Context
	)

	BeforeEach(func() {
		p, resolver = newScenarioProcessor()
		ctx = context.Background()
	})

	Describe("scenario: neither side has the content", func() {
		It("does nothing", func() {
			resolver.stores["src"].CreateSpace(ctx, "space1")
			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			Expect(p.Process(ctx, tk)).To(Succeed())
		})
	})

	Describe("scenario: source removed, destination still has a stale copy", func() {
		It("deletes the destination copy", func() {
			resolver.stores["src"].CreateSpace(ctx, "space1")
			seedWithContent(resolver, "dst", "space1", "content1", nil, []byte("stale"))

			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			Expect(p.Process(ctx, tk)).To(Succeed())

			_, err := resolver.stores["dst"].GetContentProperties(ctx, "space1", "content1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("scenario: source present but missing its checksum property", func() {
		It("fails fatally without retrying", func() {
			resolver.stores["src"].CreateSpace(ctx, "space1")
			resolver.stores["src"].Seed("space1", "content1", map[string]string{"owner": "a"}, []byte("data"))

			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			err := p.Process(ctx, tk)
			Expect(err).To(HaveOccurred())
			Expect(retry.Classify(err)).To(Equal(retry.KindFatal))
		})
	})

	Describe("scenario: source present, destination absent", func() {
		It("copies the content to destination", func() {
			data := []byte("scenario payload")
			seedWithContent(resolver, "src", "space1", "content1", map[string]string{"owner": "team-a"}, data)

			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			Expect(p.Process(ctx, tk)).To(Succeed())

			props, err := resolver.stores["dst"].GetContentProperties(ctx, "space1", "content1")
			Expect(err).NotTo(HaveOccurred())
			Expect(props["content-checksum"]).To(Equal(checksumOf(data)))
			Expect(props["owner"]).To(Equal("team-a"))
		})
	})

	Describe("scenario: source and destination checksums disagree", func() {
		It("recopies from source", func() {
			newData := []byte("revision two")
			seedWithContent(resolver, "src", "space1", "content1", nil, newData)
			seedWithContent(resolver, "dst", "space1", "content1", nil, []byte("revision one"))

			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			Expect(p.Process(ctx, tk)).To(Succeed())

			props, err := resolver.stores["dst"].GetContentProperties(ctx, "space1", "content1")
			Expect(err).NotTo(HaveOccurred())
			Expect(props["content-checksum"]).To(Equal(checksumOf(newData)))
		})
	})

	Describe("scenario: checksums agree and properties already match", func() {
		It("converges without disturbing destination", func() {
			data := []byte("already converged")
			seedWithContent(resolver, "src", "space1", "content1", map[string]string{"owner": "team-a"}, data)
			seedWithContent(resolver, "dst", "space1", "content1", map[string]string{"owner": "team-a"}, data)

			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			Expect(p.Process(ctx, tk)).To(Succeed())

			props, err := resolver.stores["dst"].GetContentProperties(ctx, "space1", "content1")
			Expect(err).NotTo(HaveOccurred())
			Expect(props["owner"]).To(Equal("team-a"))
		})
	})

	Describe("scenario: checksums agree but a property drifted", func() {
		It("updates only the properties, preserving content-checksum", func() {
			data := []byte("shared bytes, drifted metadata")
			seedWithContent(resolver, "src", "space1", "content1", map[string]string{"owner": "team-b"}, data)
			seedWithContent(resolver, "dst", "space1", "content1", map[string]string{"owner": "team-a"}, data)

			tk := task.New("acct-a", "space1", "content1", "src", "dst")
			Expect(p.Process(ctx, tk)).To(Succeed())

			props, err := resolver.stores["dst"].GetContentProperties(ctx, "space1", "content1")
			Expect(err).NotTo(HaveOccurred())
			Expect(props["owner"]).To(Equal("team-b"))
			Expect(props["content-checksum"]).To(Equal(checksumOf(data)))
		})
	})
})

package internal_test

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var cfg *internal.Config

	BeforeEach(func() {
		cfg = internal.DefaultConfig()
		cfg.Security.JWTSecret = "a-long-enough-test-secret"
		cfg.Storage.Driver = internal.StorageDriverMemory
	})

	It("accepts the defaults with a secret", func() {
		Expect(cfg.Validate()).To(Succeed())
	})

	It("only requires a database source for SQL drivers", func() {
		Expect(cfg.Storage.UsesDatabase()).To(BeFalse())

		cfg.Storage.Driver = internal.StorageDriverSQLite
		Expect(cfg.Storage.UsesDatabase()).To(BeTrue())
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("database config: source is required")))

		cfg.Database.Source = "file:approval.db"
		Expect(cfg.Validate()).To(Succeed())
	})

	It("reports every invalid section at once", func() {
		cfg.Security.JWTSecret = "short"
		cfg.Locale.DefaultCurrency = "DONG"
		cfg.Finance.MaxRetries = -1

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("security config")))
		Expect(err).To(MatchError(ContainSubstring("locale config")))
		Expect(err).To(MatchError(ContainSubstring("finance config")))
	})

	DescribeTable("rejects bad sections",
		func(mutate func(*internal.Config), want string) {
			mutate(cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(want)))
		},
		Entry("unknown storage driver", func(c *internal.Config) { c.Storage.Driver = "mongo" }, `unknown driver "mongo"`),
		Entry("document driver without url", func(c *internal.Config) {
			c.Storage.Driver = internal.StorageDriverDocument
			c.Storage.DocumentURL = ""
		}, "document_url is required"),
		Entry("bcrypt cost out of range", func(c *internal.Config) { c.Security.BCryptCost = 20 }, "bcrypt_cost"),
		Entry("relative webhook url", func(c *internal.Config) { c.Finance.WebhookURL = "finance/hook" }, "invalid webhook_url"),
		Entry("read timeout below header timeout", func(c *internal.Config) {
			c.Server.ReadTimeout = time.Second
			c.Server.ReadHeaderTimeout = 2 * time.Second
		}, "read_timeout"),
		Entry("negative attachment size", func(c *internal.Config) { c.Attachments.MaxSizeMB = -1 }, "max_size_mb"),
	)

	It("converts the attachment limit to bytes", func() {
		Expect(cfg.Attachments.MaxSizeBytes()).To(Equal(int64(10 * 1024 * 1024)))
	})

	It("reads plain environment variables", func() {
		GinkgoT().Setenv("STORAGE_DRIVER", "document")
		GinkgoT().Setenv("HTTP_PORT", "9090")
		GinkgoT().Setenv("FINANCE_MAX_WORKERS", "not-a-number")
		GinkgoT().Setenv("JWT_SECRET", "env-provided-secret-value")

		loaded := internal.LoadConfigFromEnv()
		Expect(loaded.Storage.Driver).To(Equal(internal.StorageDriverDocument))
		Expect(loaded.Server.Port).To(Equal(9090))
		Expect(loaded.Finance.MaxWorkers).To(Equal(4))
		Expect(loaded.Security.JWTSecret).To(Equal("env-provided-secret-value"))
	})
})

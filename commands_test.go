package main_test

import (
	"bytes"

	"github.com/frahmantamala/expense-approval/cmd"
	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("command tree", func() {
	var root *cobra.Command

	BeforeEach(func() {
		root = cmd.Root()
	})

	find := func(path ...string) *cobra.Command {
		c, rest, err := root.Find(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(BeEmpty())
		return c
	}

	DescribeTable("registers subcommands",
		func(path []string, use string) {
			Expect(find(path...).Name()).To(Equal(use))
		},
		Entry("server", []string{"server"}, "server"),
		Entry("migrate", []string{"migrate"}, "migrate"),
		Entry("seed", []string{"seed"}, "seed"),
		Entry("finance worker", []string{"worker", "finance"}, "finance"),
		Entry("event publish", []string{"event", "publish"}, "publish"),
		Entry("finance export", []string{"export", "finance"}, "finance"),
		Entry("login", []string{"login"}, "login"),
		Entry("logout", []string{"logout"}, "logout"),
		Entry("whoami", []string{"whoami"}, "whoami"),
		Entry("requests list", []string{"requests", "list"}, "list"),
		Entry("requests alias", []string{"req", "forward"}, "forward"),
	)

	It("exposes the config flag on every command", func() {
		Expect(root.PersistentFlags().Lookup("config")).NotTo(BeNil())
		Expect(find("seed").Flags().Lookup("clear")).NotTo(BeNil())
		Expect(find("worker", "finance").Flags().Lookup("webhook-url")).NotTo(BeNil())
	})

	It("lists request event types", func() {
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"event", "types"})
		DeferCleanup(func() {
			root.SetOut(nil)
			root.SetArgs(nil)
		})

		Expect(root.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("request.forwarded"))
		Expect(out.String()).To(ContainSubstring("request.created"))
	})

	It("refuses unknown event types", func() {
		root.SetArgs([]string{"event", "publish", "payment.created"})
		DeferCleanup(func() { root.SetArgs(nil) })

		Expect(root.Execute()).To(MatchError(ContainSubstring("unknown event type")))
	})
})

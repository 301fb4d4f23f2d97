package user_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/frahmantamala/expense-approval/internal/user/memory"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

var _ = Describe("User", func() {
	DescribeTable("CanApprove",
		func(role user.Role, canApprove, isFinance bool) {
			u := user.User{ID: "u", Role: role}
			Expect(u.CanApprove()).To(Equal(canApprove))
			Expect(u.IsFinance()).To(Equal(isFinance))
		},
		Entry("employee", user.RoleEmployee, false, false),
		Entry("manager", user.RoleManager, true, false),
		Entry("admin", user.RoleAdmin, true, false),
		Entry("finance", user.RoleFinance, false, true),
	)

	It("should parse roles case-insensitively", func() {
		r, err := user.ParseRole(" manager ")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(user.RoleManager))

		_, err = user.ParseRole("owner")
		Expect(err).To(MatchError(user.ErrInvalidRole))
	})

	It("should hash every demo credential", func() {
		accounts, err := user.DemoAccounts(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(accounts).To(HaveLen(len(user.DemoCredentials)))
		for i, a := range accounts {
			Expect(bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(user.DemoCredentials[i].Password))).To(Succeed())
		}
	})
})

var _ = Describe("Service", func() {
	var (
		service *user.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo := memory.NewUserRepository(&user.Account{
			User: user.User{ID: "manager-1", Name: "Manager Trần", Email: "manager@example.com", Role: user.RoleManager},
		})
		service = user.NewService(repo, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	It("should return the user by id", func() {
		u, err := service.GetByID(ctx, "manager-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Email).To(Equal("manager@example.com"))
	})

	It("should report a not found error for unknown ids", func() {
		_, err := service.GetByID(ctx, "ghost")
		Expect(internal.IsNotFoundError(err)).To(BeTrue())
	})

	It("should match email ignoring case and spaces", func() {
		a, err := service.GetAccountByEmail(ctx, "  Manager@Example.com ")
		Expect(err).NotTo(HaveOccurred())
		Expect(a.ID).To(Equal("manager-1"))
	})
})

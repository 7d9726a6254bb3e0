package auth_test

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/attendance-management/internal/auth"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

var _ = Describe("JWTTokenGenerator", func() {
	var (
		now time.Time
		gen *auth.JWTTokenGenerator
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
		gen = auth.NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour).
			WithClock(func() time.Time { return now })
	})

	It("round-trips the user id and role of an access token", func() {
		token, exp, err := gen.GenerateAccessToken(42, userDatamodel.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(exp).To(Equal(now.Add(15 * time.Minute)))

		claims, err := gen.ValidateAccessToken(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal(int64(42)))
		Expect(claims.Role).To(Equal(userDatamodel.RoleAdmin))
		Expect(claims.Type).To(Equal(auth.TokenTypeAccess))
	})

	It("issues a distinct token for every call in the same instant", func() {
		a, _, err := gen.GenerateRefreshToken(1, userDatamodel.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
		b, _, err := gen.GenerateRefreshToken(1, userDatamodel.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).NotTo(Equal(b))
	})

	It("reports expiry separately from other failures", func() {
		token, _, err := gen.GenerateAccessToken(1, userDatamodel.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(16 * time.Minute)
		_, err = gen.ValidateAccessToken(token)
		Expect(errors.Is(err, auth.ErrTokenExpired)).To(BeTrue())
	})

	It("does not accept a refresh token as an access token", func() {
		token, _, err := gen.GenerateRefreshToken(1, userDatamodel.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(token)
		Expect(err).To(HaveOccurred())
	})

	It("rejects tokens signed with another secret", func() {
		other := auth.NewJWTTokenGenerator("other", "other", 0, 0).WithClock(func() time.Time { return now })
		token, _, err := other.GenerateAccessToken(1, userDatamodel.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(token)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects unsigned tokens", func() {
		claims := auth.Claims{
			UserID: 1,
			Role:   userDatamodel.RoleAdmin,
			Type:   auth.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(token)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})
})

var _ = Describe("DetectDeviceType", func() {
	DescribeTable("classifies user agents",
		func(ua, expected string) {
			Expect(auth.DetectDeviceType(ua)).To(Equal(expected))
		},
		Entry("iPhone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148", "mobile"),
		Entry("Android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", "mobile"),
		Entry("iPad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", "tablet"),
		Entry("desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0", "desktop"),
		Entry("empty", "", "desktop"),
	)
})

package token_test

import (
	"time"

	"github.com/arya-analytics/orbits/pkg/api/token"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Token", func() {
	var svc *token.Service
	BeforeEach(func() {
		svc = &token.Service{Secret: []byte("orbits"), Expiration: time.Hour}
	})
	It("Should validate a token and return its session", func() {
		key := uuid.New()
		tk, err := svc.New(key)
		Expect(err).ToNot(HaveOccurred())
		Expect(svc.Validate(tk)).To(Equal(key))
	})
	It("Should reject a token signed with another secret", func() {
		other := &token.Service{Secret: []byte("other"), Expiration: time.Hour}
		tk, err := other.New(uuid.New())
		Expect(err).ToNot(HaveOccurred())
		_, err = svc.Validate(tk)
		Expect(errors.Is(err, token.ErrInvalid)).To(BeTrue())
	})
	It("Should reject an expired token", func() {
		expired := &token.Service{Secret: svc.Secret, Expiration: -time.Minute}
		tk, err := expired.New(uuid.New())
		Expect(err).ToNot(HaveOccurred())
		_, err = svc.Validate(tk)
		Expect(errors.Is(err, token.ErrInvalid)).To(BeTrue())
	})
	It("Should reject garbage", func() {
		_, err := svc.Validate("not-a-token")
		Expect(errors.Is(err, token.ErrInvalid)).To(BeTrue())
	})
})

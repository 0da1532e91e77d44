package bootloader_test

import (
	"crypto/sha256"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skycoin/bootauth/internal/testonly"
	"github.com/skycoin/bootauth/pkg/bootloader"
	"github.com/skycoin/bootauth/pkg/flash"
	"github.com/skycoin/bootauth/pkg/registry"
)

type slots = [flash.Slots]uint8

func openImage(region []byte) *flash.Image {
	img, err := flash.NewImage(region)
	Expect(err).NotTo(HaveOccurred())
	return img
}

func expectFailure(err error, sentinel error, slot int) {
	GinkgoHelper()
	Expect(err).To(MatchError(sentinel))
	var authErr *bootloader.Error
	Expect(errors.As(err, &authErr)).To(BeTrue())
	Expect(authErr.Slot).To(Equal(slot))
}

var _ = Describe("Authenticator", func() {
	var (
		authority *testonly.Authority
		auth      *bootloader.Authenticator
		code      []byte
		codeHash  bootloader.ContentHash
	)

	BeforeEach(func() {
		authority = testonly.NewAuthority("authenticator")
		auth = bootloader.New(authority.Registry, bootloader.Enforced)
		code = testonly.Code(flash.MinCodeLen + 123)
		codeHash = sha256.Sum256(code)
	})

	Describe("Verify", func() {
		It("accepts three distinct signers that each sign for their own slot", func() {
			hash, err := auth.Verify(openImage(authority.SignedImage(code, slots{2, 4, 1})))
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal(codeHash))
		})

		It("accepts every choice and ordering of three signers", func() {
			for a := uint8(1); a <= registry.Size; a++ {
				for b := uint8(1); b <= registry.Size; b++ {
					for c := uint8(1); c <= registry.Size; c++ {
						if a == b || a == c || b == c {
							continue
						}
						_, err := auth.Verify(openImage(authority.SignedImage(code, slots{a, b, c})))
						Expect(err).NotTo(HaveOccurred(), "signers %d, %d, %d", a, b, c)
					}
				}
			}
		})

		It("rejects a repeated signer even though both of its signatures are valid", func() {
			hash, err := auth.Verify(openImage(authority.SignedImage(code, slots{2, 4, 2})))
			expectFailure(err, bootloader.ErrDuplicateSigner, 3)
			Expect(hash).To(Equal(codeHash))
		})

		DescribeTable("rejects every pairing of repeated signers",
			func(indices slots, slot int) {
				_, err := auth.Verify(openImage(authority.SignedImage(code, indices)))
				expectFailure(err, bootloader.ErrDuplicateSigner, slot)
			},
			Entry("slots 1 and 2", slots{3, 3, 1}, 2),
			Entry("slots 1 and 3", slots{3, 1, 3}, 3),
			Entry("slots 2 and 3", slots{1, 3, 3}, 3),
			Entry("all slots", slots{5, 5, 5}, 2),
		)

		DescribeTable("rejects signer indices outside the registry",
			func(indices slots, slot int) {
				hash, err := auth.Verify(openImage(authority.SignedImage(code, indices)))
				expectFailure(err, bootloader.ErrInvalidIndex, slot)
				Expect(hash).To(Equal(codeHash))
			},
			Entry("zero in slot 1", slots{0, 2, 3}, 1),
			Entry("one past the end in slot 2", slots{1, 6, 3}, 2),
			Entry("maximum byte in slot 3", slots{1, 2, 0xff}, 3),
		)

		It("checks every index's range before checking for repeats", func() {
			_, err := auth.Verify(openImage(authority.SignedImage(code, slots{2, 2, 6})))
			expectFailure(err, bootloader.ErrInvalidIndex, 3)
		})

		It("rejects a signature from a different registry member than the slot claims", func() {
			region := authority.Image(code, slots{2, 4, 3}, slots{2, 4, 5})
			hash, err := auth.Verify(openImage(region))
			expectFailure(err, bootloader.ErrSignatureMismatch, 3)
			Expect(hash).To(Equal(codeHash))
		})

		It("rejects a signature from a key outside the registry", func() {
			outsider := testonly.NewAuthority("outsider")
			region := authority.SignedImage(code, slots{1, 2, 3})
			forged := outsider.SignedImage(code, slots{1, 2, 3})
			copy(region[:flash.HeaderSize], forged[:flash.HeaderSize])
			_, err := auth.Verify(openImage(region))
			expectFailure(err, bootloader.ErrSignatureMismatch, 1)
		})

		It("rejects an empty signature slot", func() {
			region := authority.Image(code, slots{1, 2, 3}, slots{1, 2, 0})
			_, err := auth.Verify(openImage(region))
			expectFailure(err, bootloader.ErrSignatureMismatch, 3)
		})

		It("rejects an image with a single flipped bit and reports the tampered hash", func() {
			region := authority.SignedImage(code, slots{2, 4, 1})
			region[flash.HeaderSize+len(code)/2] ^= 0x10
			img := openImage(region)

			hash, err := auth.Verify(img)
			expectFailure(err, bootloader.ErrSignatureMismatch, 1)
			Expect(hash).NotTo(Equal(codeHash))
			Expect(hash).To(Equal(bootloader.ContentHash(sha256.Sum256(img.Code()))))
		})

		It("hashes only the declared code length", func() {
			region := authority.SignedImage(code, slots{1, 2, 3})
			region = append(region, 0xde, 0xad, 0xbe, 0xef)
			hash, err := auth.Verify(openImage(region))
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal(codeHash))
		})

		It("fails without a hash when no firmware is present", func() {
			region := authority.SignedImage(code, slots{1, 2, 3})
			copy(region, "TRZR")
			hash, err := auth.Verify(openImage(region))
			expectFailure(err, bootloader.ErrNoFirmware, 0)
			Expect(hash).To(Equal(bootloader.ContentHash{}))
		})

		It("rejects release images when checking against a different registry", func() {
			production := bootloader.New(registry.Production(), bootloader.Enforced)
			_, err := production.Verify(openImage(authority.SignedImage(code, slots{1, 2, 3})))
			expectFailure(err, bootloader.ErrSignatureMismatch, 1)
		})
	})

	Describe("with enforcement disabled", func() {
		BeforeEach(func() {
			auth = bootloader.New(authority.Registry, bootloader.Disabled)
		})

		It("accepts unsigned firmware and still returns its hash", func() {
			region, err := flash.Build(code, slots{}, [flash.Slots][]byte{})
			Expect(err).NotTo(HaveOccurred())
			hash, err := auth.Verify(openImage(region))
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal(codeHash))
			Expect(auth.Mode()).To(Equal(bootloader.Disabled))
		})

		It("still requires firmware to be present", func() {
			_, err := auth.Verify(openImage(make([]byte, flash.HeaderSize+flash.MinCodeLen)))
			Expect(err).To(MatchError(bootloader.ErrNoFirmware))
		})
	})

	Describe("with concurrent recovery", func() {
		var concurrent *bootloader.Authenticator

		BeforeEach(func() {
			concurrent = bootloader.New(authority.Registry, bootloader.Enforced, bootloader.WithConcurrentRecovery())
		})

		It("accepts a valid quorum", func() {
			hash, err := concurrent.Verify(openImage(authority.SignedImage(code, slots{5, 3, 1})))
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal(codeHash))
		})

		It("reports the same slot as sequential checking", func() {
			region := authority.Image(code, slots{2, 4, 1}, slots{2, 5, 3})
			_, sequentialErr := auth.Verify(openImage(region))
			_, concurrentErr := concurrent.Verify(openImage(region))
			expectFailure(sequentialErr, bootloader.ErrSignatureMismatch, 2)
			expectFailure(concurrentErr, bootloader.ErrSignatureMismatch, 2)
		})

		It("can be shared by goroutines verifying different images", func() {
			good := openImage(authority.SignedImage(code, slots{1, 2, 3}))
			bad := openImage(authority.Image(code, slots{1, 2, 3}, slots{1, 4, 3}))

			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					img := good
					if i%2 == 1 {
						img = bad
					}
					_, errs[i] = concurrent.Verify(img)
				}()
			}
			wg.Wait()

			for i, err := range errs {
				if i%2 == 0 {
					Expect(err).NotTo(HaveOccurred())
				} else {
					expectFailure(err, bootloader.ErrSignatureMismatch, 2)
				}
			}
		})

		It("still rejects repeated signers", func() {
			_, err := concurrent.Verify(openImage(authority.SignedImage(code, slots{4, 1, 4})))
			expectFailure(err, bootloader.ErrDuplicateSigner, 3)
		})
	})

	Describe("SignaturesOK", func() {
		It("reports SigOK and stores the hash", func() {
			var stored bootloader.ContentHash
			result := auth.SignaturesOK(openImage(authority.SignedImage(code, slots{2, 4, 1})), &stored)
			Expect(result).To(Equal(bootloader.SigOK))
			Expect(stored).To(Equal(codeHash))
		})

		It("stores the hash even when verification fails", func() {
			var stored bootloader.ContentHash
			result := auth.SignaturesOK(openImage(authority.SignedImage(code, slots{2, 4, 2})), &stored)
			Expect(result).To(Equal(bootloader.SigFail))
			Expect(stored).To(Equal(codeHash))
		})

		It("leaves the hash untouched when no firmware is present", func() {
			stored := bootloader.ContentHash{0xaa, 0xbb}
			result := auth.SignaturesOK(openImage(make([]byte, flash.HeaderSize)), &stored)
			Expect(result).To(Equal(bootloader.SigFail))
			Expect(stored).To(Equal(bootloader.ContentHash{0xaa, 0xbb}))
		})

		It("accepts a nil hash destination", func() {
			result := auth.SignaturesOK(openImage(authority.SignedImage(code, slots{1, 2, 3})), nil)
			Expect(result).To(Equal(bootloader.SigOK))
			Expect(result.String()).To(Equal("ok"))
		})
	})
})

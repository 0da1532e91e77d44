package bootloader_test

import (
	"crypto/sha256"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/skycoin/bootauth/internal/testonly"
	"github.com/skycoin/bootauth/mocks"
	"github.com/skycoin/bootauth/pkg/bootloader"
)

var _ = Describe("Firmware access", func() {
	var (
		ctrl      *gomock.Controller
		fw        *mocks.Firmware
		authority *testonly.Authority
		code      []byte
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		DeferCleanup(func() { ctrl.Finish() })
		fw = mocks.NewFirmware(ctrl)
		authority = testonly.NewAuthority("firmware")
		code = testonly.Code(5000)
	})

	It("never reads code when firmware is absent", func() {
		fw.EXPECT().Present().Return(false)
		auth := bootloader.New(authority.Registry, bootloader.Enforced)

		stored := bootloader.ContentHash{1}
		Expect(auth.SignaturesOK(fw, &stored)).To(Equal(bootloader.SigFail))
		Expect(stored).To(Equal(bootloader.ContentHash{1}))
	})

	It("skips the metadata entirely when enforcement is disabled", func() {
		fw.EXPECT().Present().Return(true)
		fw.EXPECT().Code().Return(code)
		auth := bootloader.New(authority.Registry, bootloader.Disabled)

		hash, err := auth.Verify(fw)
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).To(Equal(bootloader.ContentHash(sha256.Sum256(code))))
	})

	It("stops at the first invalid index without reading signatures", func() {
		fw.EXPECT().Present().Return(true)
		fw.EXPECT().Code().Return(code)
		fw.EXPECT().SignerIndex(0).Return(uint8(1))
		fw.EXPECT().SignerIndex(1).Return(uint8(9))
		auth := bootloader.New(authority.Registry, bootloader.Enforced)

		_, err := auth.Verify(fw)
		Expect(err).To(MatchError(bootloader.ErrInvalidIndex))
	})

	It("does not read signatures when signers repeat", func() {
		fw.EXPECT().Present().Return(true)
		fw.EXPECT().Code().Return(code)
		fw.EXPECT().SignerIndex(gomock.Any()).Return(uint8(3)).Times(3)
		auth := bootloader.New(authority.Registry, bootloader.Enforced)

		_, err := auth.Verify(fw)
		Expect(err).To(MatchError(bootloader.ErrDuplicateSigner))
	})

	It("verifies signatures served by any Firmware implementation", func() {
		hash := sha256.Sum256(code)
		indices := [bootloader.Quorum]uint8{5, 1, 3}
		fw.EXPECT().Present().Return(true)
		fw.EXPECT().Code().Return(code)
		for slot, index := range indices {
			fw.EXPECT().SignerIndex(slot).Return(index)
			fw.EXPECT().Signature(slot).Return(authority.Sign(index, hash))
		}
		auth := bootloader.New(authority.Registry, bootloader.Enforced, bootloader.WithConcurrentRecovery())

		var stored bootloader.ContentHash
		Expect(auth.SignaturesOK(fw, &stored)).To(Equal(bootloader.SigOK))
		Expect(stored).To(Equal(bootloader.ContentHash(hash)))
	})

	It("treats a truncated signature as a mismatch", func() {
		hash := sha256.Sum256(code)
		fw.EXPECT().Present().Return(true)
		fw.EXPECT().Code().Return(code)
		for slot := 0; slot < bootloader.Quorum; slot++ {
			fw.EXPECT().SignerIndex(slot).Return(uint8(slot + 1))
		}
		fw.EXPECT().Signature(0).Return(authority.Sign(1, hash)[:64])
		fw.EXPECT().Signature(1).Return(authority.Sign(2, hash))
		fw.EXPECT().Signature(2).Return(authority.Sign(3, hash))
		auth := bootloader.New(authority.Registry, bootloader.Enforced)

		_, err := auth.Verify(fw)
		Expect(err).To(MatchError(bootloader.ErrSignatureMismatch))
		var authErr *bootloader.Error
		Expect(errors.As(err, &authErr)).To(BeTrue())
		Expect(authErr.Slot).To(Equal(1))
	})
})

var _ = Describe("Error", func() {
	It("formats code, slot and detail", func() {
		err := &bootloader.Error{Code: bootloader.ErrCodeDuplicateSigner, Slot: 3, Info: "signer indices [2 4 2] are not distinct"}
		Expect(err.Error()).To(Equal("DuplicateSigner: slot 3: signer indices [2 4 2] are not distinct"))
		Expect((&bootloader.Error{Code: bootloader.ErrCodeNoFirmware}).Error()).To(Equal("NoFirmware"))
		Expect(bootloader.ErrorCode(42).String()).To(Equal("ErrorCode(42)"))
	})

	It("matches sentinels by code through wrapping", func() {
		err := fmt.Errorf("boot: %w", &bootloader.Error{Code: bootloader.ErrCodeSignatureMismatch, Slot: 2})
		Expect(errors.Is(err, bootloader.ErrSignatureMismatch)).To(BeTrue())
		Expect(errors.Is(err, bootloader.ErrInvalidIndex)).To(BeFalse())
	})
})

var _ = Describe("Fingerprint", func() {
	It("splits the hash into four display lines", func() {
		hash := bootloader.ContentHash(sha256.Sum256([]byte("abc")))
		Expect(bootloader.Fingerprint(hash)).To(Equal([]string{
			"ba7816bf8f01cfea",
			"414140de5dae2223",
			"b00361a396177a9c",
			"b410ff61f20015ad",
		}))
	})

	It("renders enforcement modes and results", func() {
		Expect(bootloader.Enforced.String()).To(Equal("enforced"))
		Expect(bootloader.Disabled.String()).To(Equal("disabled"))
		Expect(bootloader.New(nil, bootloader.EnforcementMode(7)).Mode()).To(Equal(bootloader.Enforced))
		Expect(bootloader.SigFail.String()).To(Equal("fail"))
		Expect(uint32(bootloader.SigOK)).To(Equal(uint32(0x5A3CA5C3)))
	})
})

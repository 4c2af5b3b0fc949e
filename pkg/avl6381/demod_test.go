package avl6381

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Demod", func() {
	var (
		chip  *fakeChip
		demod *Demod
		clock *sleeper
	)

	BeforeEach(func() {
		chip = newFakeChip()
		demod, clock = newTestDemod(chip)
	})

	Describe("Identify", func() {
		It("reads the chip id of a recognized family", func() {
			Expect(demod.Identify()).To(Succeed())
			Expect(demod.ChipID()).To(Equal(uint32(1)))
		})

		It("rejects an unknown family", func() {
			chip.set(RegFamilyID, 0x12345678, W32)
			err := demod.Identify()
			Expect(err).To(MatchError(ErrIdentity))

			var ie *IdentityError
			Expect(err).To(BeAssignableToTypeOf(ie))
			Expect(err.(*IdentityError).Family).To(Equal(uint32(0x12345678)))
		})
	})

	Describe("Initialize", func() {
		It("brings the chip up in the boot profile", func() {
			Expect(demod.Initialize(ProfileDVBC)).To(Succeed())
			Expect(demod.Profile()).To(Equal(ProfileDVBC))
			Expect(demod.State()).To(Equal(StateReady))

			Expect(chip.wrote(RegRepeaterDiv, 0x27, W32)).To(BeTrue())
			Expect(chip.wrote(RegSymbolRate, DTMBSymbolRate, W32)).To(BeTrue())
			Expect(chip.wrote(RegSNRTweak, 0x0A, W32)).To(BeTrue())
			Expect(chip.ops).To(ContainElements(RxOpInit, RxOpSDRAM))
		})

		It("switches to DTMB after the boot profile", func() {
			Expect(demod.Initialize(ProfileDTMB)).To(Succeed())
			Expect(demod.Profile()).To(Equal(ProfileDTMB))
			Expect(demod.State()).To(Equal(StateReady))
			Expect(chip.get(RegMode, W32)).To(Equal(uint32(0)))
			Expect(chip.ops).To(ContainElements(RxOpSwitchMode, RxOpDTMBADC))
			Expect(chip.wrote(RegRepeaterDiv, 0x34, W32)).To(BeTrue())
		})

		It("fails when the core never reports ready", func() {
			chip.neverReady = true
			err := demod.Initialize(ProfileDVBC)
			Expect(err).To(MatchError(ErrTimeout))
			Expect(demod.State()).To(Equal(StateFailed))
		})

		It("fails on an unrecognized chip without writing", func() {
			chip.set(RegFamilyID, 0, W32)
			Expect(demod.Initialize(ProfileDVBC)).To(MatchError(ErrIdentity))
			Expect(chip.writes).To(BeEmpty())
		})
	})

	Describe("SetMode", func() {
		BeforeEach(func() {
			Expect(demod.Initialize(ProfileDVBC)).To(Succeed())
		})

		It("settles in ready after switching", func() {
			Expect(demod.SetMode(ProfileDTMB)).To(Succeed())
			Expect(demod.Profile()).To(Equal(ProfileDTMB))
			Expect(demod.State()).To(Equal(StateReady))
		})

		It("is a no-op when the chip already runs the profile", func() {
			before := len(chip.writes)
			Expect(demod.SetMode(ProfileDVBC)).To(Succeed())
			Expect(chip.writes).To(HaveLen(before))
		})

		It("leaves the profile unknown when the chip does not come back", func() {
			chip.neverReady = true
			err := demod.SetMode(ProfileDTMB)
			Expect(err).To(MatchError(ErrTimeout))

			var se StepErrors
			Expect(err).To(BeAssignableToTypeOf(se))
			Expect(err.(StepErrors).Steps()).To(ContainElement("switch.ready"))
			Expect(demod.Profile()).To(Equal(ProfileUnknown))
		})

		It("requires initialization", func() {
			fresh, _ := newTestDemod(newFakeChip())
			Expect(fresh.SetMode(ProfileDTMB)).To(MatchError(ErrNotInitialized))
		})
	})

	Describe("Lock", func() {
		BeforeEach(func() {
			Expect(demod.Initialize(ProfileDVBC)).To(Succeed())
		})

		It("locks a cable channel", func() {
			Expect(demod.Lock(ProfileDVBC)).To(Succeed())
			Expect(demod.State()).To(Equal(StateLocked))

			locked, err := demod.LockStatus()
			Expect(err).NotTo(HaveOccurred())
			Expect(locked).To(BeTrue())

			level, err := demod.RunningLevel()
			Expect(err).NotTo(HaveOccurred())
			Expect(level).To(Equal(uint32(2)))
		})

		It("rejects a profile the chip is not running", func() {
			before := len(chip.writes)
			Expect(demod.Lock(ProfileDTMB)).To(MatchError(ErrProfileMismatch))
			Expect(chip.writes).To(HaveLen(before))
			Expect(demod.State()).To(Equal(StateReady))
		})

		It("halts when the receiver will not stop", func() {
			chip.set(0x0001A4, 21, W32)
			chip.stuckRunning = true
			before := clock.calls

			err := demod.Lock(ProfileDVBC)
			Expect(err).To(MatchError(ErrTimeout))
			Expect(demod.State()).To(Equal(StateHalted))
			Expect(chip.ops).NotTo(ContainElement(RxOpDVBCAutoLock))
			Expect(clock.calls - before).To(BeNumerically(">=", runningAttempts-1))
		})

		It("halts when acquisition never starts the receiver", func() {
			chip.noLock = true
			Expect(demod.Lock(ProfileDVBC)).To(MatchError(ErrTimeout))
			Expect(demod.State()).To(Equal(StateHalted))
		})

		It("locks a DTMB channel after a mode switch", func() {
			Expect(demod.SetMode(ProfileDTMB)).To(Succeed())
			Expect(demod.Lock(ProfileDTMB)).To(Succeed())
			Expect(chip.ops).To(ContainElement(RxOpDTMBAutoLock))

			locked, err := demod.LockStatus()
			Expect(err).NotTo(HaveOccurred())
			Expect(locked).To(BeTrue())
		})
	})

	Describe("bring-up", func() {
		It("identifies, initializes and locks on one bus", func() {
			Expect(demod.State()).To(Equal(StateUninitialized))

			Expect(demod.Identify()).To(Succeed())
			Expect(demod.ChipID()).To(Equal(uint32(1)))

			Expect(demod.Initialize(ProfileDTMB)).To(Succeed())
			Expect(demod.State()).To(Equal(StateReady))
			Expect(demod.Profile()).To(Equal(ProfileDTMB))

			Expect(demod.SetSymbolRate(DTMBSymbolRate)).To(Succeed())
			Expect(demod.Lock(ProfileDTMB)).To(Succeed())
			Expect(demod.State()).To(Equal(StateLocked))

			locked, err := demod.LockStatus()
			Expect(err).NotTo(HaveOccurred())
			Expect(locked).To(BeTrue())
			Expect(chip.ops).To(ContainElements(RxOpInit, RxOpSwitchMode, RxOpDTMBAutoLock))
		})
	})

	Describe("SNR", func() {
		BeforeEach(func() {
			Expect(demod.Initialize(ProfileDVBC)).To(Succeed())
		})

		It("samples through the latch and caches while pending", func() {
			chip.set(0x0001AE, 2750, W16)
			snr, err := demod.SNR()
			Expect(err).NotTo(HaveOccurred())
			Expect(snr).To(Equal(uint32(2750)))
			Expect(chip.get(0x0005D8, W32)).To(Equal(uint32(1)))

			chip.set(0x0001AE, 100, W16)
			snr, err = demod.SNR()
			Expect(err).NotTo(HaveOccurred())
			Expect(snr).To(Equal(uint32(2750)))
		})
	})

	Describe("GateTuner", func() {
		It("writes the gate value repeatedly", func() {
			Expect(demod.GateTuner(true)).To(Succeed())
			Expect(chip.writes).To(HaveLen(gateRepeats))
			for _, w := range chip.writes {
				Expect(w.reg).To(Equal(uint32(RegRepeaterGate)))
				Expect(w.data).To(Equal([]byte{0, 0, 0, gateOpen}))
			}
		})
	})

	Describe("Sleep", func() {
		It("parks the chip and requires a fresh bring-up", func() {
			Expect(demod.Initialize(ProfileDVBC)).To(Succeed())
			Expect(demod.Sleep()).To(Succeed())
			Expect(demod.State()).To(Equal(StateUninitialized))
			Expect(chip.ops).To(ContainElement(RxOpSleep))
			Expect(demod.SetMode(ProfileDVBC)).To(MatchError(ErrNotInitialized))
		})
	})
})

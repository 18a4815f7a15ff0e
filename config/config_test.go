package config_test

import (
	"os"

	"github.com/mmcloughlin/avo/reg"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tilecc/config"
	"github.com/sarchlab/tilecc/ir"
)

var _ = Describe("Target", func() {
	It("should leave the stack and frame pointers out by default", func() {
		t := config.TargetBuilder{}.Build("amd64")

		Expect(t.Palette).To(HaveLen(14))
		Expect(t.Palette).NotTo(ContainElement(ir.Hardware(reg.RSP)))
		Expect(t.Palette).NotTo(ContainElement(ir.Hardware(reg.RBP)))
		Expect(t.Scratch).To(Equal([]ir.HardwareRegister{
			ir.Hardware(reg.R10), ir.Hardware(reg.R11),
		}))
	})

	It("should drop the scratch registers from the reduced palette", func() {
		t := config.TargetBuilder{}.
			WithRegisters(reg.RAX, reg.R10, reg.RBX, reg.R11).
			Build("small")

		Expect(t.Reduced()).To(Equal([]ir.HardwareRegister{
			ir.Hardware(reg.RAX), ir.Hardware(reg.RBX),
		}))
	})

	It("should refuse the stack pointer", func() {
		Expect(func() {
			config.TargetBuilder{}.WithRegisters(reg.RAX, reg.RSP)
		}).To(Panic())
	})

	It("should refuse too few scratch registers", func() {
		Expect(func() {
			config.TargetBuilder{}.WithScratch(reg.R10)
		}).To(Panic())
	})

	Context("environment", func() {
		AfterEach(func() {
			os.Unsetenv(config.PaletteSizeEnv)
		})

		It("should trim the palette", func() {
			os.Setenv(config.PaletteSizeEnv, "3")

			t := config.TargetBuilder{}.WithEnv().Build("env")

			Expect(t.Palette).To(HaveLen(3))
		})

		It("should ignore the variable unless asked to", func() {
			os.Setenv(config.PaletteSizeEnv, "3")

			t := config.TargetBuilder{}.Build("env")

			Expect(t.Palette).To(HaveLen(14))
		})
	})
})

var _ = Describe("LoadTargetFromYAML", func() {
	It("should read register names", func() {
		t, err := config.LoadTargetFromYAML([]byte(`
name: small
registers: [rax, BX, r10, R11]
scratch: [r10, r11]
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Name).To(Equal("small"))
		Expect(t.Palette).To(Equal([]ir.HardwareRegister{
			ir.Hardware(reg.RAX), ir.Hardware(reg.RBX),
			ir.Hardware(reg.R10), ir.Hardware(reg.R11),
		}))
		Expect(t.Reduced()).To(HaveLen(2))
	})

	It("should fall back to the defaults", func() {
		t, err := config.LoadTargetFromYAML([]byte("name: plain\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Palette).To(HaveLen(14))
		Expect(t.Scratch).To(HaveLen(2))
	})

	It("should reject unknown registers", func() {
		_, err := config.LoadTargetFromYAML([]byte("registers: [rax, xmm0]\n"))

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("xmm0"))
	})

	It("should reject the frame pointer", func() {
		_, err := config.LoadTargetFromYAML([]byte("registers: [rax, rbp]\n"))

		Expect(err).To(HaveOccurred())
	})

	It("should reject a single scratch register", func() {
		_, err := config.LoadTargetFromYAML([]byte("scratch: [r10]\n"))

		Expect(err).To(HaveOccurred())
	})

	It("should reject malformed documents", func() {
		_, err := config.LoadTargetFromYAML([]byte("registers: {"))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Lookup", func() {
	It("should accept both naming styles", func() {
		a, err := config.Lookup("r12")
		Expect(err).NotTo(HaveOccurred())
		b, err := config.Lookup("R12")
		Expect(err).NotTo(HaveOccurred())

		Expect(ir.Hardware(a)).To(Equal(ir.Hardware(b)))
		Expect(ir.Hardware(a).String()).To(Equal("r12"))
	})
})

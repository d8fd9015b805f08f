// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the SF32LB52x register offsets, bitfields and
// memory-map bases used by the HCPU-side drivers.
//
// All peripheral offsets are relative to PERIPH_BASE, all shared-RAM
// offsets are relative to LPSYS_RAM_BASE; the two windows are mapped
// separately from /dev/mem.
package regs // import "github.com/go-sifli/sf52/internal/regs"

// Physical windows.
const (
	PERIPH_BASE = 0x4000_0000 // HPSYS peripheral window
	PERIPH_SPAN = 0x0005_0000

	LPSYS_RAM_BASE = 0x2040_0000 // LPSYS shared RAM, HCPU view
	LPSYS_RAM_SPAN = 0x0010_0000
)

// Peripheral block offsets within the PERIPH window.
const (
	HPSYS_RCC = 0x0000_0000
	HPSYS_AON = 0x0000_1000
	MAILBOX1  = 0x0000_2000
	HPSYS_CFG = 0x0000_3000
	EFUSEC    = 0x0000_4000
	AUDCODEC  = 0x0000_5000
	PMUC      = 0x0000_6000
	LPSYS_AON = 0x0000_7000
	MAILBOX2  = 0x0004_2000
)

// HPSYS_RCC registers.
const (
	RCC_ENR1   = HPSYS_RCC + 0x00
	RCC_RSTR1  = HPSYS_RCC + 0x04
	RCC_ENR2   = HPSYS_RCC + 0x08
	RCC_RSTR2  = HPSYS_RCC + 0x0C
	RCC_CSR    = HPSYS_RCC + 0x10
	RCC_CFGR   = HPSYS_RCC + 0x14
	RCC_DLL1CR = HPSYS_RCC + 0x24
	RCC_DLL2CR = HPSYS_RCC + 0x28
	RCC_USBCR  = HPSYS_RCC + 0x38
)

// RCC_ENR1/RSTR1 peripheral bits.
const (
	RCC_HP_MAILBOX1 = 1 << 4
	RCC_HP_AUDCODEC = 1 << 9
	RCC_HP_EFUSEC   = 1 << 12
	RCC_HP_PTC1     = 1 << 14
)

// RCC_CSR fields.
const (
	MASK_SEL_SYS  = 0x3 << 0 // clk_sys source
	SHIFT_SEL_SYS = 0

	SEL_SYS_HRC48 = 0
	SEL_SYS_HXT48 = 1
	SEL_SYS_DBL96 = 2
	SEL_SYS_DLL1  = 3

	MASK_SEL_PERI  = 0x1 << 4 // clk_peri source
	SHIFT_SEL_PERI = 4

	SEL_PERI_HXT48 = 0
	SEL_PERI_HRC48 = 1

	MASK_SEL_USBC  = 0x1 << 8 // clk_usb source
	SHIFT_SEL_USBC = 8

	SEL_USBC_CLK_SYS = 0
	SEL_USBC_DLL2    = 1
)

// RCC_CFGR fields.
const (
	MASK_HDIV  = 0xFF << 0 // hclk = clk_sys / hdiv
	SHIFT_HDIV = 0

	MASK_PDIV1  = 0x7 << 8 // pclk1 = hclk >> pdiv1
	SHIFT_PDIV1 = 8

	MASK_PDIV2  = 0x7 << 12 // pclk2 = hclk >> pdiv2
	SHIFT_PDIV2 = 12
)

// RCC_DLLxCR fields.
const (
	DLL_EN = 1 << 0

	MASK_DLL_STG  = 0xF << 1 // fout = 24MHz * (stg+1)
	SHIFT_DLL_STG = 1

	DLL_OUT_DIV2_EN = 1 << 5
	DLL_READY       = 1 << 30
)

// RCC_USBCR fields.
const (
	MASK_USB_DIV  = 0x7 << 0
	SHIFT_USB_DIV = 0
)

// HPSYS_AON registers.
const (
	AON_ACR = HPSYS_AON + 0x00

	AON_HRC48_RDY = 1 << 1
	AON_HXT48_RDY = 1 << 5
)

// HPSYS_CFG registers.
const (
	CFG_IDR = HPSYS_CFG + 0x00

	MASK_IDR_REVID  = 0xFF << 0
	SHIFT_IDR_REVID = 0
	MASK_IDR_PID    = 0xFF << 8
	SHIFT_IDR_PID   = 8
	MASK_IDR_CID    = 0xFF << 16
	SHIFT_IDR_CID   = 16
	MASK_IDR_SID    = 0xFF << 24
	SHIFT_IDR_SID   = 24
)

// Mailbox channel register file. Each channel is a 0x20-byte block:
// trigger, enable, clear and status all drive the low 16 bits; the
// exclusive register implements the hardware mutex.
const (
	MB_NCHAN       = 4
	MB_CHAN_STRIDE = 0x20

	MB_ITR = 0x00 // write-1-to-trigger
	MB_IER = 0x04 // interrupt enable, read-modify-write
	MB_ICR = 0x08 // write-1-to-clear
	MB_ISR = 0x0C // masked status (raw & enable)
	MB_EXR = 0x10 // hardware mutex

	MB_EXR_EX = 1 << 0 // read clears to claim; write 1 to release

	MASK_MB_EXR_ID  = 0x3 << 1 // owner core ID while locked
	SHIFT_MB_EXR_ID = 1
)

// EFUSEC registers.
const (
	EFUSE_TIMR = EFUSEC + 0x00
	EFUSE_CR   = EFUSEC + 0x04
	EFUSE_SR   = EFUSEC + 0x08

	EFUSE_BANK0_DATA = EFUSEC + 0x10 // 8 words
	EFUSE_BANK1_DATA = EFUSEC + 0x30 // 8 words

	SHIFT_EFUSE_THRCK = 0  // read hold, 7 bits
	SHIFT_EFUSE_THPCK = 8  // program hold, 3 bits
	SHIFT_EFUSE_TCKHP = 16 // program pulse, 11 bits
)

// AUDCODEC PLL registers.
const (
	AUD_BG_CFG0     = AUDCODEC + 0x00
	AUD_BG_CFG1     = AUDCODEC + 0x04
	AUD_BG_CFG2     = AUDCODEC + 0x08
	AUD_REFGEN_CFG  = AUDCODEC + 0x0C
	AUD_PLL_CFG0    = AUDCODEC + 0x10
	AUD_PLL_CFG1    = AUDCODEC + 0x14
	AUD_PLL_CFG2    = AUDCODEC + 0x18
	AUD_PLL_CFG3    = AUDCODEC + 0x1C
	AUD_PLL_CFG4    = AUDCODEC + 0x20
	AUD_PLL_CAL_CFG = AUDCODEC + 0x24
	AUD_PLL_CAL_RES = AUDCODEC + 0x28
	AUD_PLL_STAT    = AUDCODEC + 0x2C
)

// AUD_BG_CFG0 fields.
const (
	BG_EN       = 1 << 0
	BG_EN_SMPL  = 1 << 1
	BG_EN_RCFLT = 1 << 2
)

// AUD_REFGEN_CFG fields.
const (
	REFGEN_EN = 1 << 0
)

// AUD_PLL_CFG0 fields.
const (
	PLL_EN_IARY = 1 << 0
	PLL_EN_VCO  = 1 << 1
	PLL_EN_ANA  = 1 << 2
	PLL_OPEN    = 1 << 3

	MASK_PLL_ICP_SEL  = 0xF << 4
	SHIFT_PLL_ICP_SEL = 4

	MASK_PLL_FC_VCO  = 0x1F << 8 // 5-bit VCO tuning code
	SHIFT_PLL_FC_VCO = 8
)

// AUD_PLL_CFG1 fields (loop filter + lock detector).
const (
	MASK_PLL_R3_SEL  = 0x7 << 0
	SHIFT_PLL_R3_SEL = 0
	MASK_PLL_RZ_SEL  = 0x7 << 3
	SHIFT_PLL_RZ_SEL = 3
	MASK_PLL_C2_SEL  = 0x7 << 6
	SHIFT_PLL_C2_SEL = 6
	MASK_PLL_CZ_SEL  = 0x7 << 9
	SHIFT_PLL_CZ_SEL = 9

	PLL_CSD_EN  = 1 << 12
	PLL_CSD_RST = 1 << 13
)

// AUD_PLL_CFG2 fields.
const (
	PLL_EN_DIG     = 1 << 0
	PLL_EN_LF_VCIN = 1 << 1
	PLL_RSTB       = 1 << 2
)

// AUD_PLL_CFG3 fields (SDM).
const (
	MASK_PLL_SDIN  = 0xF_FFFF << 0 // 20-bit fractional word
	SHIFT_PLL_SDIN = 0

	MASK_PLL_FCW  = 0xF << 20 // 4-bit integer word
	SHIFT_PLL_FCW = 20

	PLL_EN_SDM        = 1 << 24
	PLL_SDM_UPDATE    = 1 << 25
	PLL_SDMIN_BYPASS  = 1 << 26
	PLL_SDM_MODE      = 1 << 27
	PLL_EN_SDM_DITHER = 1 << 28
	PLL_SDM_DITHER    = 1 << 29
	PLL_SDMCLK_POL    = 1 << 30
)

// AUD_PLL_CFG4 fields.
const (
	PLL_EN_CLK_DIG = 1 << 0
)

// AUD_PLL_CAL_CFG fields.
const (
	PLL_CAL_EN   = 1 << 0
	PLL_CAL_DONE = 1 << 1

	MASK_PLL_CAL_LEN  = 0xFFFF << 16 // calibration window, cycles
	SHIFT_PLL_CAL_LEN = 16
)

// AUD_PLL_CAL_RES fields.
const (
	MASK_PLL_CNT  = 0xFFFF << 0
	SHIFT_PLL_CNT = 0
)

// AUD_PLL_STAT fields.
const (
	PLL_UNLOCK = 1 << 0
)

// PMUC registers.
const (
	PMUC_HXT_CR1 = PMUC + 0x00

	HXT_BUF_AUD_EN = 1 << 3
)

// LPSYS_AON registers (LCPU reset control, HCPU side).
const (
	LPAON_CR = LPSYS_AON + 0x00

	LPAON_LCPU_HOLD = 1 << 0 // 1 holds LCPU in reset
)

// LPSYS shared-RAM layout (offsets within the RAM window).
//
// The A3 patch region sits at the top of the window; the Letter-Series
// region sits at the bottom, above the ROM config block.
const (
	// A3 and earlier (LCPU image loaded from flash).
	A3_PATCH_RECORD = 0x000F_E000
	A3_PATCH_CODE   = 0x000F_0000
	A3_PATCH_SIZE   = 0x0000_C000

	// Letter Series (A4/B4, LCPU runs from ROM).
	LETTER_PATCH_BUF  = 0x0000_4000 // 3-word header
	LETTER_PATCH_CODE = 0x0000_5000
	LETTER_PATCH_SIZE = 0x0000_2000

	LETTER_PATCH_MAGIC   = 0x5041_4348 // "PACH"
	LETTER_PATCH_ENTRIES = 8

	// ROM config block, one per patch layout.
	ROM_CONFIG_A3     = 0x000F_FD00
	ROM_CONFIG_LETTER = 0x0000_FE00

	// HCPU -> LCPU mailbox channel-1 exchange buffer.
	HCPU2LCPU_MB_CH1_BUF = 0x0000_FC00
)

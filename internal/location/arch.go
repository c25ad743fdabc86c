package location

import (
	"strings"
	"sync"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Arch names the instruction set a register name belongs to.
type Arch string

const (
	ArchUnknown Arch = ""
	ArchX86     Arch = "x86"
	ArchARM64   Arch = "arm64"
)

var (
	regTableOnce sync.Once
	x86Regs      map[string]bool
	arm64Regs    map[string]bool
)

// Register names are collected from the disassemblers' own tables so the
// lists track whatever x/arch knows about. Unnamed slots print as "Reg(N)".
func buildRegTables() {
	x86Regs = make(map[string]bool)
	for r := 1; r < 256; r++ {
		name := x86asm.Reg(r).String()
		if strings.HasPrefix(name, "Reg(") {
			continue
		}
		x86Regs[strings.ToLower(name)] = true
	}
	arm64Regs = make(map[string]bool)
	for r := 0; r < 1024; r++ {
		name := arm64asm.Reg(r).String()
		if strings.HasPrefix(name, "Reg(") {
			continue
		}
		arm64Regs[strings.ToLower(name)] = true
	}
}

// Arch reports which architecture recognises the register name, checking
// x86 first. Decompilers often suffix sub-register views ("rax.4"); only the
// part before the first '.' is considered.
func (r Register) Arch() Arch {
	regTableOnce.Do(buildRegTables)
	name := strings.ToLower(r.Name)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	switch {
	case x86Regs[name]:
		return ArchX86
	case arm64Regs[name]:
		return ArchARM64
	}
	return ArchUnknown
}

package diag

import (
	"context"
	"log/slog"

	"golang.org/x/arch/x86/x86asm"
)

// LogTrampoline disassembles a synthesized trampoline or GOT slot
// (see internal/reloc) and logs it at debug level, so a maintainer
// tracing a bad relocation can see exactly what code the loader wrote
// without reaching for objdump on a process that no longer exists once
// the arena is closed. bits is 32 or 64, matching the object's class.
func LogTrampoline(logger *slog.Logger, label string, code []byte, pc uint64, bits int) {
	if logger == nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	var lines []string
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, bits)
		size := inst.Len
		if err != nil || size == 0 {
			size = 1
			lines = append(lines, "(bad)")
		} else {
			lines = append(lines, x86asm.GoSyntax(inst, pc, nil))
		}
		code = code[size:]
		pc += uint64(size)
	}
	logger.Debug("synthesized code", "label", label, "insts", lines)
}

package mi

import "fmt"

// Builders for the MI commands the session issues. Command text never
// includes the correlation token; the session prefixes it on write.

// DataReadMemoryBytes reads length bytes starting at addr+offset.
func DataReadMemoryBytes(addr, offset, length uint64) string {
	return fmt.Sprintf("-data-read-memory-bytes 0x%02x+0x%02x %d", addr, offset, length)
}

// DataReadSPBytes reads length bytes starting at $sp+offset.
func DataReadSPBytes(offset, length uint64) string {
	return fmt.Sprintf("-data-read-memory-bytes $sp+0x%02x %d", offset, length)
}

// DataDisassemblePC disassembles a window around $pc.
func DataDisassemblePC(before, amt int) string {
	return fmt.Sprintf("-data-disassemble -s $pc-%d -e $pc+%d -- 0", before, amt)
}

func ListRegisterNames() string    { return "-data-list-register-names" }
func ListRegisterValues() string   { return "-data-list-register-values x" }
func ListChangedRegisters() string { return "-data-list-changed-registers" }
func StackListFrames() string      { return "-stack-list-frames" }

// InfoProcMappings asks for the memory map. There is no MI command for
// this; the reply arrives as console stream records which the session
// collects until the matching result record.
func InfoProcMappings() string {
	return `-interpreter-exec console "info proc mappings"`
}

// ShowEndian asks for the target byte order, reported on the console
// stream ("The target endianness is set automatically (currently ...)").
func ShowEndian() string {
	return `-interpreter-exec console "show endian"`
}

// SizeofPointerProbe evaluates the target's long width, used to fix an
// auto pointer size on the first stop.
func SizeofPointerProbe() string {
	return `-data-evaluate-expression "sizeof(long)"`
}

func ExecRun() string             { return "-exec-run" }
func ExecContinue() string        { return "-exec-continue" }
func ExecStep() string            { return "-exec-step" }
func ExecStepInstruction() string { return "-exec-step-instruction" }
func ExecNext() string            { return "-exec-next" }
func ExecNextInstruction() string { return "-exec-next-instruction" }
func ExecFinish() string          { return "-exec-finish" }

// ExecInterrupt is the out-of-band interrupt for transports with no
// process handle to signal. It is written untokened.
func ExecInterrupt() string { return "-exec-interrupt" }

// SetMIAsync enables asynchronous execution so the interrupt can be
// delivered while the target runs.
func SetMIAsync() string { return "-gdb-set mi-async on" }

// SetIntelFlavor selects intel disassembly syntax.
func SetIntelFlavor() string { return "-gdb-set disassembly-flavor intel" }

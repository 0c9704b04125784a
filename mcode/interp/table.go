/*
 * mule - opcode dispatch table construction
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package interp

import "github.com/rcornwell/mule/mcode/opcodes"

// opInvalid traps any opcode value the ISA leaves reserved.
func opInvalid(m *Machine) uint16 {
	return opcodes.TrapInvalidOpcode
}

// createTable fills the 256-entry dispatch table. Regular, evenly-spaced
// opcode families (LI0..15, the short load/store forms, CLL1..15) are
// filled with a loop closing over the implied offset; every other opcode
// gets one named entry, the way cpuState.createTable lists RR/RX/SI/SS
// handlers one literal at a time.
func (m *Machine) createTable() {
	for i := range m.table {
		m.table[i] = opInvalid
	}

	for n := uint16(0); n <= 15; n++ {
		n := n
		m.table[opcodes.LI0+n] = func(m *Machine) uint16 { m.push(n); return 0 }
	}
	for n := uint16(4); n <= 15; n++ {
		off := byte(opcodes.LLW4) + byte(n-4)
		n := n
		m.table[off] = func(m *Machine) uint16 { m.push(m.Ar.DSH[m.L+n]); return 0 }
	}
	for n := uint16(4); n <= 15; n++ {
		off := byte(opcodes.SLW4) + byte(n-4)
		n := n
		m.table[off] = func(m *Machine) uint16 { m.Ar.DSH[m.L+n] = m.pop(); return 0 }
	}
	for n := uint16(4); n <= 15; n++ {
		off := byte(opcodes.LGW4) + byte(n-4)
		n := n
		m.table[off] = func(m *Machine) uint16 { m.push(m.Ar.DSH[m.G+n]); return 0 }
	}
	for n := uint16(4); n <= 15; n++ {
		off := byte(opcodes.SGW4) + byte(n-4)
		n := n
		m.table[off] = func(m *Machine) uint16 { m.Ar.DSH[m.G+n] = m.pop(); return 0 }
	}
	for n := uint16(0); n <= 15; n++ {
		off := byte(opcodes.LSW0) + byte(n)
		n := n
		m.table[off] = func(m *Machine) uint16 { base := m.pop(); m.push(m.Ar.DSH[base+n]); return 0 }
	}
	for n := uint16(0); n <= 15; n++ {
		off := byte(opcodes.SSW0) + byte(n)
		n := n
		m.table[off] = func(m *Machine) uint16 { v := m.pop(); base := m.pop(); m.Ar.DSH[base+n] = v; return 0 }
	}
	for n := byte(1); n <= 15; n++ {
		n := n
		m.table[byte(opcodes.CLL)+n] = func(m *Machine) uint16 { return m.doCLL(n) }
	}

	m.table[opcodes.LIB] = opLIB
	m.table[opcodes.LIW] = opLIW
	m.table[opcodes.LID] = opLID
	m.table[opcodes.LLA] = opLLA
	m.table[opcodes.LGA] = opLGA
	m.table[opcodes.LSA] = opLSA
	m.table[opcodes.LEA] = opLEA

	m.table[opcodes.JPC] = opJPC
	m.table[opcodes.JP] = opJP
	m.table[opcodes.JPFC] = opJPFC
	m.table[opcodes.JPBC] = opJPBC
	m.table[opcodes.JPF] = opJPF
	m.table[opcodes.JPB] = opJPB
	m.table[opcodes.ORJP] = opORJP
	m.table[opcodes.ANDJP] = opANDJP

	m.table[opcodes.LLW] = opLLW
	m.table[opcodes.LLD] = opLLD
	m.table[opcodes.LEW] = opLEW
	m.table[opcodes.LED] = opLED
	m.table[opcodes.SLW] = opSLW
	m.table[opcodes.SLD] = opSLD
	m.table[opcodes.SEW] = opSEW
	m.table[opcodes.SED] = opSED

	m.table[opcodes.LGW] = opLGW
	m.table[opcodes.LGD] = opLGD
	m.table[opcodes.SGW] = opSGW
	m.table[opcodes.SGD] = opSGD

	m.table[opcodes.LSW] = opLSW
	m.table[opcodes.LSD] = opLSD
	m.table[opcodes.LSD0] = opLSD
	m.table[opcodes.LXFW] = opOpenQuestion
	m.table[opcodes.LSTA] = opLSTA
	m.table[opcodes.LXB] = opLXB
	m.table[opcodes.LXW] = opLXW
	m.table[opcodes.LXD] = opLXD

	m.table[opcodes.DADD] = opDADD
	m.table[opcodes.DSUB] = opDSUB
	m.table[opcodes.DMUL] = opDMUL
	m.table[opcodes.DDIV] = opDDIV
	m.table[opcodes.DSHL] = opDSHL
	m.table[opcodes.DSHR] = opDSHR

	m.table[opcodes.SSW] = opSSW
	m.table[opcodes.SSD] = opSSD
	m.table[opcodes.SXFW] = opOpenQuestion
	m.table[opcodes.SXB] = opSXB
	m.table[opcodes.SXW] = opSXW
	m.table[opcodes.SXD] = opSXD

	m.table[opcodes.FADD] = opFADD
	m.table[opcodes.FSUB] = opFSUB
	m.table[opcodes.FMUL] = opFMUL
	m.table[opcodes.FDIV] = opFDIV
	m.table[opcodes.FCMP] = opFCMP
	m.table[opcodes.FABS] = opFABS
	m.table[opcodes.FNEG] = opFNEG
	m.table[opcodes.FFCT] = opFFCT

	m.table[opcodes.READ] = opREAD
	m.table[opcodes.WRITE] = opWRITE
	m.table[opcodes.DSKR] = opUnsupportedIO
	m.table[opcodes.DSKW] = opUnsupportedIO
	m.table[opcodes.SETRK] = opUnsupportedIO
	m.table[opcodes.UCHK] = opUCHK
	m.table[opcodes.SVC] = opSVC
	m.table[opcodes.SYS] = opSYS

	m.table[opcodes.ENTP] = opENTP
	m.table[opcodes.EXP] = opEXP
	m.table[opcodes.ULSS] = opUCmp(func(a, b uint16) bool { return a < b })
	m.table[opcodes.ULEQ] = opUCmp(func(a, b uint16) bool { return a <= b })
	m.table[opcodes.UGTR] = opUCmp(func(a, b uint16) bool { return a > b })
	m.table[opcodes.UGEQ] = opUCmp(func(a, b uint16) bool { return a >= b })
	m.table[opcodes.TRA] = opOpenQuestion
	m.table[opcodes.RDS] = opRDS

	m.table[opcodes.STORE] = opSTORE
	m.table[opcodes.LODFW] = opLODF
	m.table[opcodes.LODFD] = opLODF
	m.table[opcodes.STOT] = opSTOT
	m.table[opcodes.STOFV] = opSTOFV
	m.table[opcodes.COPT] = opCOPT
	m.table[opcodes.DECS] = opDECS
	m.table[opcodes.PCOP] = opPCOP

	m.table[opcodes.UADD] = opUADD
	m.table[opcodes.USUB] = opUSUB
	m.table[opcodes.UMUL] = opUMUL
	m.table[opcodes.UDIV] = opUDIV
	m.table[opcodes.UMOD] = opUMOD
	m.table[opcodes.ROR] = opROR
	m.table[opcodes.SHL] = opSHL
	m.table[opcodes.SHR] = opSHR

	m.table[opcodes.FOR1] = opFOR1
	m.table[opcodes.FOR2] = opFOR2
	m.table[opcodes.ENTC] = opENTC
	m.table[opcodes.EXC] = opEXC
	m.table[opcodes.TRAP] = opTRAP
	m.table[opcodes.CHK] = opCHK
	m.table[opcodes.CHKZ] = opCHKZ
	m.table[opcodes.CHKS] = opCHKS

	signedCmp := []func(a, b int16) bool{
		func(a, b int16) bool { return a < b },
		func(a, b int16) bool { return a <= b },
		func(a, b int16) bool { return a > b },
		func(a, b int16) bool { return a >= b },
		func(a, b int16) bool { return a == b },
		func(a, b int16) bool { return a != b },
	}
	for i, cmp := range signedCmp {
		m.table[opcodes.CMPI+i] = opSCmp(cmp)
	}
	m.table[opcodes.ABS] = opABS
	m.table[opcodes.NEG] = opNEG

	m.table[opcodes.OR] = opOR
	m.table[opcodes.XOR] = opXOR
	m.table[opcodes.AND] = opAND
	m.table[opcodes.COM] = opCOM
	m.table[opcodes.IN] = opIN
	m.table[opcodes.LIN] = opLIN
	m.table[opcodes.MSK] = opMSK
	m.table[opcodes.NOT] = opNOT

	m.table[opcodes.IADD] = opIADD
	m.table[opcodes.ISUB] = opISUB
	m.table[opcodes.IMUL] = opIMUL
	m.table[opcodes.IDIV] = opIDIV
	m.table[opcodes.IMOD] = opIMOD
	m.table[opcodes.BIT] = opBIT

	m.table[opcodes.NOP] = func(m *Machine) uint16 { return 0 }
	m.table[opcodes.MOVF] = opOpenQuestion

	m.table[opcodes.MOV] = opMOV
	m.table[opcodes.CMP] = opCMP
	m.table[opcodes.DDT] = opOpenQuestion
	m.table[opcodes.REPL] = opOpenQuestion
	m.table[opcodes.BBLT] = opOpenQuestion
	m.table[opcodes.DCH] = opDCH
	m.table[opcodes.UNPK] = opUNPK
	m.table[opcodes.PACK] = opPACK

	m.table[opcodes.GB] = opGB
	m.table[opcodes.GB1] = opGB1
	m.table[opcodes.ALLOC] = opALLOC
	m.table[opcodes.ENTR] = opENTR
	m.table[opcodes.RTN] = opRTN
	m.table[opcodes.CLX] = opCLX
	m.table[opcodes.CLI] = opCLI
	m.table[opcodes.CLF] = opOpenQuestion
	m.table[opcodes.CLL] = opCLL0
}

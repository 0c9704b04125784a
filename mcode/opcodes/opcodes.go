/*
 * mule - M-Code opcode constants and trap numbers
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

// Package opcodes names the M-Code instruction set in octal, the way the
// ISA was originally documented, and the interpreter's trap numbers.
package opcodes

// Opcodes, grouped by octal range as in the ISA table. Values are written
// as Go octal literals to match the octal mnemonics.
const (
	LI0 = 0o00
	LI1 = 0o01
	LI2 = 0o02
	LI3 = 0o03
	LI4 = 0o04
	LI5 = 0o05
	LI6 = 0o06
	LI7 = 0o07
	LI8 = 0o10
	LI9 = 0o11
	LI10 = 0o12
	LI11 = 0o13
	LI12 = 0o14
	LI13 = 0o15
	LI14 = 0o16
	LI15 = 0o17

	LIB = 0o20
	LIW = 0o22
	LID = 0o23
	LLA = 0o24
	LGA = 0o25
	LSA = 0o26
	LEA = 0o27

	JPC  = 0o30
	JP   = 0o31
	JPFC = 0o32
	JPBC = 0o33
	JPF  = 0o34
	JPB  = 0o35
	ORJP = 0o36
	ANDJP = 0o37

	LLW  = 0o40
	LLD  = 0o41
	LEW  = 0o42
	LED  = 0o43
	LLW4 = 0o44
	LLW5 = 0o45
	LLW6 = 0o46
	LLW7 = 0o47
	LLW8 = 0o50
	LLW9 = 0o51
	LLW10 = 0o52
	LLW11 = 0o53
	LLW12 = 0o54
	LLW13 = 0o55
	LLW14 = 0o56
	LLW15 = 0o57

	SLW  = 0o60
	SLD  = 0o61
	SEW  = 0o62
	SED  = 0o63
	SLW4 = 0o64
	SLW5 = 0o65
	SLW6 = 0o66
	SLW7 = 0o67
	SLW8 = 0o70
	SLW9 = 0o71
	SLW10 = 0o72
	SLW11 = 0o73
	SLW12 = 0o74
	SLW13 = 0o75
	SLW14 = 0o76
	SLW15 = 0o77

	LGW  = 0o100
	LGD  = 0o101
	SGW  = 0o102
	SGD  = 0o103
	LGW4 = 0o104
	LGW5 = 0o105
	LGW6 = 0o106
	LGW7 = 0o107
	LGW8 = 0o110
	LGW9 = 0o111
	LGW10 = 0o112
	LGW11 = 0o113
	LGW12 = 0o114
	LGW13 = 0o115
	LGW14 = 0o116
	LGW15 = 0o117

	SGW4 = 0o124
	SGW5 = 0o125
	SGW6 = 0o126
	SGW7 = 0o127
	SGW8 = 0o130
	SGW9 = 0o131
	SGW10 = 0o132
	SGW11 = 0o133
	SGW12 = 0o134
	SGW13 = 0o135
	SGW14 = 0o136
	SGW15 = 0o137

	LSW0 = 0o140
	SSW0 = 0o160
	// 0140-0157 is the stack-indirect short form LSWn, n in 0..15
	// (pop base, push DSH[base+n]); 0160-0177 is SSWn, n in 0..15
	// (pop value then base, DSH[base+n] = value). Handled generically
	// off opcode-LSW0 / opcode-SSW0.

	LSW  = 0o200
	LSD  = 0o201
	LSD0 = 0o202
	LXFW = 0o203
	LSTA = 0o204
	LXB  = 0o205
	LXW  = 0o206
	LXD  = 0o207

	DADD = 0o210
	DSUB = 0o211
	DMUL = 0o212
	DDIV = 0o213
	DSHL = 0o214
	DSHR = 0o215
	// 0216, 0217 reserved in the family table; treated as INV_OPC.

	SSW  = 0o220
	SSD  = 0o221
	SXFW = 0o222
	// 0223 reserved in the family table; treated as INV_OPC.
	SXB = 0o224
	SXW = 0o225
	SXD = 0o226
	// 0227 reserved.

	FADD = 0o230
	FSUB = 0o231
	FMUL = 0o232
	FDIV = 0o233
	FCMP = 0o234
	FABS = 0o235
	FNEG = 0o236
	FFCT = 0o237

	READ  = 0o240
	WRITE = 0o241
	DSKR  = 0o242
	DSKW  = 0o243
	SETRK = 0o244
	UCHK  = 0o245
	SVC   = 0o246
	SYS   = 0o247

	ENTP = 0o250
	EXP  = 0o251
	ULSS = 0o252
	ULEQ = 0o253
	UGTR = 0o254
	UGEQ = 0o255
	TRA  = 0o256
	RDS  = 0o257

	STORE  = 0o260
	LODFW  = 0o261
	LODFD  = 0o262
	STOT   = 0o263
	STOFV  = 0o264
	COPT   = 0o265
	DECS   = 0o266
	PCOP   = 0o267

	UADD = 0o270
	USUB = 0o271
	UMUL = 0o272
	UDIV = 0o273
	UMOD = 0o274
	ROR  = 0o275
	SHL  = 0o276
	SHR  = 0o277

	FOR1 = 0o300
	FOR2 = 0o301
	ENTC = 0o302
	EXC  = 0o303
	TRAP = 0o304
	CHK  = 0o305
	CHKZ = 0o306
	CHKS = 0o307

	CMPI = 0o310 // signed compare family base
	ABS  = 0o316
	NEG  = 0o317

	OR  = 0o320
	XOR = 0o321
	AND = 0o322
	COM = 0o323
	IN  = 0o324
	LIN = 0o325
	MSK = 0o326
	NOT = 0o327

	IADD = 0o330
	ISUB = 0o331
	IMUL = 0o332
	IDIV = 0o333
	IMOD = 0o334
	BIT  = 0o335

	NOP  = 0o336
	MOVF = 0o337

	MOV  = 0o340
	CMP  = 0o341
	DDT  = 0o342
	REPL = 0o343
	BBLT = 0o344
	DCH  = 0o345
	UNPK = 0o346
	PACK = 0o347

	GB    = 0o350
	GB1   = 0o351
	ALLOC = 0o352
	ENTR  = 0o353
	RTN   = 0o354
	CLX   = 0o355
	CLI   = 0o356
	CLF   = 0o357

	CLL = 0o360
	// 0361-0377: CLL1..CLL15, short local calls; handled as CLL+(op&0xf).
)

// Trap numbers, per §4.D's trap table.
const (
	TrapStackOverflow = 3
	TrapIndex         = 4
	TrapIntArith      = 10
	TrapCodeOverflow  = 11
	TrapInvalidFFCT   = 12
	TrapInvalidOpcode = 13
	TrapSystem        = 14
)

// Fixupable is the set of opcodes whose 1-byte operand the linker rewrites
// from a 1-based import-table slot to an absolute module-table index.
var Fixupable = map[byte]bool{
	LIW: true,
	LED: true,
	SED: true,
	LEA: true,
	LEW: true,
	SEW: true,
	CLX: true,
}

package rsc

import (
	"fmt"
)

var (
	mnemonics = [16]string{
		"MOV", "LSL", "ASR", "ROR", "AND", "ANN", "IOR", "XOR",
		"ADD", "SUB", "MUL", "DIV", "FAD", "FSB", "FML", "FDV",
	}
	conditions = [16]string{
		"MI", "EQ", "CS", "VS", "LS", "LT", "LE", "",
		"PL", "NE", "CC", "VC", "HI", "GE", "GT", "NO",
	}
)

func reg(r uint32) string {
	switch r {
	case 12:
		return "MT"
	case 13:
		return "SB"
	case 14:
		return "SP"
	case 15:
		return "LNK"
	default:
		return fmt.Sprintf("R%X", r)
	}
}

type decoder struct {
	modules []string
	data    int
	strings map[int]string
}

func (d *decoder) module(mno uint32) string {
	if int(mno) < len(d.modules) {
		return d.modules[mno]
	}
	return "?"
}

// annotate describes the target of a data-relative offset.
func (d *decoder) annotate(off int) string {
	if off < d.data {
		return "data"
	}
	s, ok := d.strings[off]
	switch {
	case !ok:
		return "data"
	case s == "\x00\x00":
		return "pointer reference"
	default:
		return `"` + s + `"`
	}
}

func imm16(w uint32) int {
	v := int(w & 0xFFFF)
	if v >= 0x8000 {
		v -= 0x10000
	}
	return v
}

func memOp(u uint32) string {
	if u == 1 {
		return "STR"
	}
	return "LDR"
}

func (d *decoder) instruction(w uint32, addr int, fix fixup) (string, error) {
	k := w >> 30
	a := (w >> 24) & 0xF
	b := (w >> 20) & 0xF
	op := (w >> 16) & 0xF
	u := (w >> 29) & 1
	link := ""
	if (w>>28)&1 == 1 {
		link = "L"
	}
	mnemonic := mnemonics[op]
	if u == 1 {
		mnemonic += "'"
	}

	switch {
	case k == 2 && fix == fixD:
		return fmt.Sprintf("%s %s, %s, MOD%d [%s]", memOp(u), reg(a), reg(12), b, d.module(b)), nil
	case k == 2 && fix == fixD2A:
		return fmt.Sprintf("%s %s, %s, %s%d", memOp(u), reg(a), reg(b), entity(w), w&0xFF), nil
	case k == 1 && fix == fixD2A:
		return fmt.Sprintf("%s %s, %s, %s%d", mnemonic, reg(a), reg(b), entity(w), w&0xFF), nil
	case k == 1 && fix == fixD2S:
		off := imm16(w)
		return fmt.Sprintf("%s %s, %s, %XH [%s]", mnemonic, reg(a), reg(b), uint32(off), d.annotate(off)), nil
	case k == 2 && fix == fixD2S:
		off := imm16(w)
		return fmt.Sprintf("%s %s, %s, %XH [%s]", memOp(u), reg(a), reg(b), uint32(off), d.annotate(off)), nil
	case k == 0 && fix == fixD2S:
		return fmt.Sprintf("%s %s, %s, %s [global array]", mnemonic, reg(a), reg(b), reg(w&0xF)), nil
	case k == 3 && u == 1 && fix == fixP:
		return fmt.Sprintf("B%s%s MOD%d [%s] PROC%d", link, conditions[a], b, d.module(b), (w>>12)&0xFF), nil
	case fix != fixNone:
		return "", fmt.Errorf("%w: fixup %s on instruction class %d/%d", ErrFormat, fix, k, u)
	case k == 0:
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, reg(a), reg(b), reg(w&0xF)), nil
	case k == 1:
		return fmt.Sprintf("%s %s, %s, %XH", mnemonic, reg(a), reg(b), uint32(imm16(w))), nil
	case k == 2:
		return fmt.Sprintf("%s %s, %s, %XH", memOp(u), reg(a), reg(b), uint32(imm16(w))), nil
	case u == 0:
		trap := (w >> 4) & 0xF
		pos := (w >> 8) & 0xFFFF
		s := fmt.Sprintf("B%s%s %s", link, conditions[a], reg(w&0xF))
		if trap != 0 || pos != 0 {
			s += fmt.Sprintf(" [trap=%d, pos=%d]", trap, pos)
		}
		return s, nil
	default:
		off := int(w & 0xFFFFF)
		if off >= 0x80000 {
			off -= 0x100000
		}
		return fmt.Sprintf("B%s%s %d [%04XH]", link, conditions[a], off, addr+1+off), nil
	}
}

func entity(w uint32) string {
	if (w>>8)&1 == 1 {
		return "PROC"
	}
	return "VAR"
}

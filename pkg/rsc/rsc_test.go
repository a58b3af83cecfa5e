package rsc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

type object struct{ bytes.Buffer }

func (o *object) str(s string) { o.WriteString(s); o.WriteByte(0) }
func (o *object) ints(vs ...int32) {
	for _, v := range vs {
		_ = binary.Write(o, binary.LittleEndian, v)
	}
}
func (o *object) words(ws ...uint32) {
	for _, w := range ws {
		_ = binary.Write(o, binary.LittleEndian, w)
	}
}

var program = []uint32{
	0x40000005, // MOV R0, R0, 5
	0x80100001, // LDR R0, MT, MOD1
	0x40080103, // ADD R0, R0, PROC3
	0xC700000F,
	0x80000003, // LDR R0, MT, MOD0
	0x41080008, // ADD R1, R0, 8
	0xF7102006,
	0xE7FFFFFF,
	0xC700000F,
}

func buildObject(trailer ...byte) []byte {
	var o object
	o.str("T")
	o.ints(0x12345678)
	o.WriteByte(1)
	o.ints(0x100)
	o.str("Lib")
	o.ints(0xABCD)
	o.WriteByte(0)
	o.ints(0) // type descriptors
	o.ints(8) // data
	o.ints(4) // string table
	o.Write([]byte{'a', 'b', 0, 0})
	o.ints(int32(len(program)))
	o.words(program...)
	o.str("Run")
	o.ints(0)
	o.WriteByte(0)
	o.ints(1, 0) // entries
	o.ints(-1)   // pointer references
	o.ints(6, 4, 0, 0)
	o.WriteString("OM")
	for i := range program {
		o.ints(int32(10 * i))
	}
	o.WriteByte('X')
	o.Write(trailer)
	return o.Bytes()
}

func TestDecode(t *testing.T) {
	listing, err := Decode(buildObject(), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wantIntro := []string{
		indent + ".MODULE T (KEY 12345678, VERSION 1, SIZE 00000100)",
		indent + ".IMPORT Lib (KEY 0000ABCD)",
		indent + ".DATA 8H",
		indent + `.STRING 8H "ab"`,
		indent + ".FIXUP T 0H",
	}
	if !reflect.DeepEqual(listing.Intro, wantIntro) {
		t.Fatalf("intro = %q, want %q", listing.Intro, wantIntro)
	}
	wantLines := [][]string{
		{indent + ".PROC 0", indent + ".COMMAND Run", indent + ".ENTRYPOINT", "(40000005):    MOV R0, R0, 5H"},
		{indent + ".FIXUP D", "(80100001):    LDR R0, MT, MOD1 [Lib]"},
		{"(40080103):    ADD R0, R0, PROC3"},
		{"(C700000F):    B LNK"},
		{indent + ".FIXUP D", "(80000003):    LDR R0, MT, MOD0 [T]"},
		{`(41080008):    ADD R1, R0, 8H ["ab"]`},
		{indent + ".FIXUP P", "(F7102006):    BL MOD1 [Lib] PROC2"},
		{"(E7FFFFFF):    B -1 [0007H]"},
		{"(C700000F):    B LNK"},
	}
	if !reflect.DeepEqual(listing.Lines, wantLines) {
		t.Fatalf("lines = %q, want %q", listing.Lines, wantLines)
	}
	if len(listing.Positions) != len(program) || listing.Positions[3] != 30 {
		t.Fatalf("positions = %v", listing.Positions)
	}
}

func TestDecodeSkippingStrings(t *testing.T) {
	listing, err := Decode(buildObject(), false)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := listing.Intro[3]; got != indent+".STRING TABLE SKIPPED" {
		t.Fatalf("intro[3] = %q", got)
	}
	if got := listing.Lines[5][0]; got != "(41080008):    ADD R1, R0, 8H [data]" {
		t.Fatalf("line 5 = %q", got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	good := buildObject()
	cases := map[string][]byte{
		"truncated": good[:len(good)-6],
		"trailing":  buildObject(0),
		"empty":     nil,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data, true); !errors.Is(err, ErrFormat) {
				t.Fatalf("err = %v, want ErrFormat", err)
			}
		})
	}
}

func TestRegisterNames(t *testing.T) {
	for r, want := range map[uint32]string{0: "R0", 11: "RB", 12: "MT", 13: "SB", 14: "SP", 15: "LNK"} {
		if got := reg(r); got != want {
			t.Fatalf("reg(%d) = %q, want %q", r, got, want)
		}
	}
}

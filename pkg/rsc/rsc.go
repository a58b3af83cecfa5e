// Package rsc disassembles RISC5 object files (.rsc) produced by the Project
// Oberon compiler into annotated instruction listings.
package rsc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// ErrFormat reports a malformed object file.
var ErrFormat = errors.New("malformed object file")

const indent = "               "

// Listing is the disassembly of one object file.
type Listing struct {
	// Intro holds the header directives (module, imports, data, strings).
	Intro []string
	// Positions maps each instruction to the source offset it was
	// generated from.
	Positions []int
	// Lines holds, per instruction, its directives followed by the
	// instruction itself.
	Lines [][]string
}

type fixup int

const (
	fixNone fixup = iota
	fixP          // external procedure call
	fixD          // load of an imported module's base
	fixD2A        // access to an imported variable or procedure
	fixD2S        // access to own data or strings
)

func (f fixup) String() string {
	switch f {
	case fixP:
		return "P"
	case fixD:
		return "D"
	case fixD2A:
		return "D2A"
	case fixD2S:
		return "D2S"
	}
	return ""
}

// ReadFile decodes the object file at path.
func ReadFile(path string, parseStrings bool) (*Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read object file: %w", err)
	}
	listing, err := Decode(data, parseStrings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return listing, nil
}

type reader struct {
	r   *bytes.Reader
	err error
}

func (rd *reader) int() int {
	var v int32
	if rd.err == nil {
		rd.err = binary.Read(rd.r, binary.LittleEndian, &v)
	}
	return int(v)
}

func (rd *reader) byte() byte {
	if rd.err != nil {
		return 0
	}
	b, err := rd.r.ReadByte()
	rd.err = err
	return b
}

func (rd *reader) string() string {
	var sb strings.Builder
	for {
		b := rd.byte()
		if b == 0 || rd.err != nil {
			return sb.String()
		}
		sb.WriteByte(b)
	}
}

// Decode disassembles an object file image. When parseStrings is false the
// string table is skipped and data references are not annotated; modules
// using $-delimited strings need this since their tables are not
// NUL-separated text.
func Decode(data []byte, parseStrings bool) (*Listing, error) {
	rd := &reader{r: bytes.NewReader(data)}
	var intro []string

	name := rd.string()
	modules := []string{name}
	key := rd.int()
	version := int8(rd.byte())
	size := rd.int()
	intro = append(intro, fmt.Sprintf("%s.MODULE %s (KEY %08X, VERSION %d, SIZE %08X)", indent, name, uint32(key), version, uint32(size)))
	for {
		imp := rd.string()
		if imp == "" || rd.err != nil {
			break
		}
		modules = append(modules, imp)
		intro = append(intro, fmt.Sprintf("%s.IMPORT %s (KEY %08X)", indent, imp, uint32(rd.int())))
	}

	tdCount := rd.int() / 4
	if tdCount > 0 {
		var sb strings.Builder
		sb.WriteString(indent + ".TYPEDESC")
		for i := 0; i < tdCount && rd.err == nil; i++ {
			fmt.Fprintf(&sb, " %08X", uint32(rd.int()))
		}
		intro = append(intro, sb.String())
	}
	dataSize := rd.int()
	if dataSize != 0 {
		intro = append(intro, fmt.Sprintf("%s.DATA %XH", indent, dataSize))
	}
	dataSize += tdCount * 4

	stringLen := rd.int()
	var strs map[int]string
	if parseStrings {
		strs = map[int]string{}
		var cur strings.Builder
		for i := 0; i < stringLen && rd.err == nil; i++ {
			ch := rd.byte()
			if ch != 0 {
				cur.WriteByte(ch)
				continue
			}
			offset := dataSize + i - cur.Len()
			strs[offset] = cur.String()
			intro = append(intro, fmt.Sprintf("%s.STRING %XH \"%s\"", indent, offset, cur.String()))
			cur.Reset()
			for i%4 != 3 {
				if pad := rd.byte(); pad != 0 {
					return nil, fmt.Errorf("%w: non-zero padding %#x after string at %d", ErrFormat, pad, i)
				}
				i++
			}
		}
		if cur.Len() != 0 {
			return nil, fmt.Errorf("%w: unterminated string %q", ErrFormat, cur.String())
		}
	} else {
		intro = append(intro, indent+".STRING TABLE SKIPPED")
		if _, err := rd.r.Seek(int64(stringLen), io.SeekCurrent); err != nil && rd.err == nil {
			rd.err = err
		}
		dataSize = math.MaxInt32
	}

	codeLen := rd.int()
	if codeLen < 0 || codeLen > len(data)/4 {
		return nil, fmt.Errorf("%w: code length %d", ErrFormat, codeLen)
	}
	code := make([]uint32, codeLen)
	for i := range code {
		code[i] = uint32(rd.int())
	}

	type command struct {
		name   string
		offset int
	}
	var commands []command
	for {
		cmd := rd.string()
		if cmd == "" || rd.err != nil {
			break
		}
		commands = append(commands, command{cmd, rd.int()})
	}
	entryCount := rd.int()
	if entryCount < 0 || entryCount > len(data)/4 {
		return nil, fmt.Errorf("%w: entry count %d", ErrFormat, entryCount)
	}
	entries := make([]int, entryCount)
	for i := range entries {
		entries[i] = rd.int()
	}
	var pointers []int
	for rd.err == nil {
		p := rd.int()
		if p == -1 {
			break
		}
		pointers = append(pointers, p)
	}
	if len(pointers) > 0 {
		var sb strings.Builder
		sb.WriteString(indent + ".POINTER_REFERENCES")
		for _, p := range pointers {
			fmt.Fprintf(&sb, " %XH", p)
			if strs != nil {
				strs[p] = "\x00\x00"
			}
		}
		intro = append(intro, sb.String())
	}

	fixPChain, fixDChain, fixT, entry := rd.int(), rd.int(), rd.int(), rd.int()
	intro = append(intro, fmt.Sprintf("%s.FIXUP T %XH", indent, fixT))
	if rd.byte() != 'O' || rd.byte() != 'M' {
		return nil, fmt.Errorf("%w: missing OM marker", ErrFormat)
	}
	positions := make([]int, codeLen)
	for i := range positions {
		positions[i] = rd.int()
	}
	if rd.byte() != 'X' {
		return nil, fmt.Errorf("%w: missing X marker", ErrFormat)
	}
	if rd.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, rd.err)
	}
	if rd.r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, rd.r.Len())
	}

	fixups := make([]fixup, codeLen)
	for fix := fixPChain; fix != 0; fix -= int(code[fix] & 0xFFF) {
		if fix < 0 || fix >= codeLen || fixups[fix] != fixNone {
			return nil, fmt.Errorf("%w: bad P fixup chain at %d", ErrFormat, fix)
		}
		fixups[fix] = fixP
	}
	for fix := fixDChain; fix != 0; fix -= int(code[fix] & 0xFFF) {
		if fix < 0 || fix+1 >= codeLen || fixups[fix] != fixNone {
			return nil, fmt.Errorf("%w: bad D fixup chain at %d", ErrFormat, fix)
		}
		fixups[fix] = fixD
		if (code[fix]>>20)&0xF == 0 {
			fixups[fix+1] = fixD2S
		} else {
			fixups[fix+1] = fixD2A
		}
	}

	d := &decoder{modules: modules, data: dataSize, strings: strs}
	lines := make([][]string, codeLen)
	for i, w := range code {
		var group []string
		for j, e := range entries {
			if i*4 == e {
				group = append(group, fmt.Sprintf("%s.PROC %d", indent, j))
			}
		}
		for _, c := range commands {
			if i*4 == c.offset {
				group = append(group, fmt.Sprintf("%s.COMMAND %s", indent, c.name))
			}
		}
		if i*4 == entry {
			group = append(group, indent+".ENTRYPOINT")
		}
		if fixups[i] == fixD || fixups[i] == fixP {
			group = append(group, fmt.Sprintf("%s.FIXUP %s", indent, fixups[i]))
		}
		text, err := d.instruction(w, i, fixups[i])
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		lines[i] = append(group, fmt.Sprintf("(%08X):    %s", w, text))
	}
	return &Listing{Intro: intro, Positions: positions, Lines: lines}, nil
}

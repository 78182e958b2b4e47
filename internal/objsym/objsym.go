// Package objsym lists the global symbols defined by relocatable object files, for use in archive
// symbol tables.
package objsym

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
)

const imageSymClassExternal = 2

// Read returns the names of the global symbols data defines, in symbol table order. Data that
// isn't an ELF, Mach-O or COFF object yields no symbols and no error.
func Read(data []byte) ([]string, error) {
	switch {
	case bytes.HasPrefix(data, []byte(elf.ELFMAG)):
		return readELF(data)
	case isMachO(data):
		return readMachO(data)
	case isCOFF(data):
		return readCOFF(data)
	}
	return nil, nil
}

func readELF(data []byte) ([]string, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("elf: %w", err)
	}
	defer f.Close()
	syms, err := f.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("elf: %w", err)
	}
	var names []string
	for _, s := range syms {
		bind := elf.ST_BIND(s.Info)
		if bind != elf.STB_GLOBAL && bind != elf.STB_WEAK {
			continue
		}
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		names = append(names, s.Name)
	}
	return names, nil
}

func isMachO(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	for _, magic := range []uint32{macho.Magic32, macho.Magic64} {
		if binary.LittleEndian.Uint32(data) == magic || binary.BigEndian.Uint32(data) == magic {
			return true
		}
	}
	return false
}

const (
	machoStab = 0xe0
	machoType = 0x0e
	machoExt  = 0x01
	machoUndf = 0x00
)

func readMachO(data []byte) ([]string, error) {
	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("macho: %w", err)
	}
	defer f.Close()
	if f.Symtab == nil {
		return nil, nil
	}
	var names []string
	for _, s := range f.Symtab.Syms {
		if s.Type&machoStab != 0 || s.Type&machoExt == 0 {
			continue
		}
		// Undefined externals with a value are common symbols, which are defined here.
		if s.Type&machoType == machoUndf && s.Value == 0 {
			continue
		}
		names = append(names, s.Name)
	}
	return names, nil
}

// isCOFF reports whether data starts with the file header of a COFF object for a machine that
// toolchains produce static libraries for.
func isCOFF(data []byte) bool {
	// debug/pe always reads a 96-byte DOS header first.
	if len(data) < 96 {
		return false
	}
	switch binary.LittleEndian.Uint16(data) {
	case pe.IMAGE_FILE_MACHINE_I386, pe.IMAGE_FILE_MACHINE_AMD64,
		pe.IMAGE_FILE_MACHINE_ARMNT, pe.IMAGE_FILE_MACHINE_ARM64:
	default:
		return false
	}
	// The optional header is absent from object files.
	return binary.LittleEndian.Uint16(data[16:]) == 0
}

func readCOFF(data []byte) ([]string, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("coff: %w", err)
	}
	defer f.Close()
	var names []string
	for _, s := range f.Symbols {
		if s.StorageClass != imageSymClassExternal {
			continue
		}
		// Section 0 with a non-zero value is a common symbol.
		if s.SectionNumber == 0 && s.Value == 0 {
			continue
		}
		names = append(names, s.Name)
	}
	return names, nil
}

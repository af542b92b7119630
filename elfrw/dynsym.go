package elfrw

import (
	"io"

	"github.com/pkg/errors"
)

const (
	dynstrSection = ".dynstr"
	dynsymSection = ".dynsym"
)

// AppendDynamicSymbol returns a transformer that adds one dynamic symbol: name
// goes to the end of .dynstr, and sym, with its name pointing there, to the end
// of .dynsym. sym.NameOffset is overwritten.
//
// Nothing else is updated. In particular the symbol hash tables and the
// DT_STRSZ dynamic entry keep their old values.
func AppendDynamicSymbol(e *ELFFile, name string, sym Symbol) (SectionTransformer, error) {
	dynstr, err := e.FindSection(dynstrSection)
	if err != nil {
		return nil, err
	}
	if _, err := e.FindSection(dynsymSection); err != nil {
		return nil, err
	}

	// The new string starts where the table currently ends.
	strtabSize := e.Sections[dynstr].Size
	if strtabSize > uint64(^uint32(0)) {
		return nil, errors.Errorf("%s is too large to append to: 0x%x bytes", dynstrSection, strtabSize)
	}
	sym.NameOffset = uint32(strtabSize)
	sym.Name = name

	codec := e.Codec()
	record := make([]byte, codec.SymbolSize())
	if _, err := codec.EncodeSymbol(record, sym); err != nil {
		return nil, errors.Wrapf(err, "encoding symbol %q", name)
	}
	nameBytes := append([]byte(name), 0)

	return TransformerFunc(func(input []byte, sh SectionHeader, _ Context, out io.Writer) (uint64, bool, error) {
		var extra []byte
		switch sh.Name {
		case dynstrSection:
			extra = nameBytes
		case dynsymSection:
			extra = record
		default:
			return 0, false, nil
		}

		if _, err := out.Write(input[sh.Off:sh.End()]); err != nil {
			return 0, false, err
		}
		if _, err := out.Write(extra); err != nil {
			return 0, false, err
		}
		return sh.Size + uint64(len(extra)), true, nil
	}), nil
}

// RemoveDynamicSymbol is not supported: removing an entry shifts the index of
// every following symbol, which relocations refer to.
func RemoveDynamicSymbol(e *ELFFile, name string) (SectionTransformer, error) {
	return nil, errors.Wrapf(ErrNotImplemented, "removing dynamic symbol %q", name)
}
